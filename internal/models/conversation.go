package models

// ConversationTurn is one prior exchange supplied by the caller per request.
// Turns are ephemeral; they are folded into the prompt and never persisted.
type ConversationTurn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Source identifies one retrieved file backing an answer.
type Source struct {
	FileName   string  `json:"file_name"`
	Similarity float64 `json:"similarity"`
	Summary    string  `json:"summary"`
}

// CachedAnswer is the cacheable result of a query: the generated answer plus
// the sources it was grounded on.
type CachedAnswer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}
