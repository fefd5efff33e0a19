// Package llm provides embedding and generation providers backed by langchaingo.
package llm

import "context"

// Message is one chat message sent to the generation provider.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// Completion is the result of a generation call, with token usage for
// cost accounting.
type Completion struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Embedder generates fixed-dimension embedding vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
	Dimension() int
}

// Generator produces chat completions.
type Generator interface {
	Complete(ctx context.Context, messages []Message) (*Completion, error)
	Model() string
}
