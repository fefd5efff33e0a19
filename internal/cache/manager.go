package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/codescout-ai/codescout/internal/models"
)

const (
	// EmbeddingTTL is how long embedding vectors are reused for identical text.
	EmbeddingTTL = 24 * time.Hour

	// QueryResultTTL is how long full query answers are reused.
	QueryResultTTL = 30 * time.Minute

	// AnswerTTL is the short TTL of the bounded answer tier.
	AnswerTTL = 5 * time.Minute

	// AnswerCacheSize is the soft size bound of the answer tier.
	AnswerCacheSize = 100

	// SweepInterval is how often expired entries are evicted in bulk.
	SweepInterval = 5 * time.Minute
)

// Manager bundles the process-local caches used by the query engine.
//
// Two answer tiers exist on purpose: the query-result store holds full
// responses for longer reuse, while the answer LRU is a small, short-lived
// tier that absorbs request bursts for hot questions. The embedding store is
// independent of both and keys on input text alone.
type Manager struct {
	embeddings *Store[[]float32]
	queries    *Store[models.CachedAnswer]
	answers    *expirable.LRU[string, models.CachedAnswer]
}

// NewManager creates the cache tiers and starts their background sweeps.
func NewManager() *Manager {
	m := &Manager{
		embeddings: NewStore[[]float32](),
		queries:    NewStore[models.CachedAnswer](),
		answers:    expirable.NewLRU[string, models.CachedAnswer](AnswerCacheSize, nil, AnswerTTL),
	}
	m.embeddings.StartSweep(SweepInterval)
	m.queries.StartSweep(SweepInterval)
	return m
}

// Close stops the background sweeps.
func (m *Manager) Close() {
	m.embeddings.Stop()
	m.queries.Stop()
}

// GetEmbedding returns a cached embedding for text, if fresh.
func (m *Manager) GetEmbedding(text string) ([]float32, bool) {
	return m.embeddings.Get("emb:" + HashKey(text))
}

// SetEmbedding caches an embedding for text.
func (m *Manager) SetEmbedding(text string, vector []float32) {
	m.embeddings.Set("emb:"+HashKey(text), vector, EmbeddingTTL)
}

// GetAnswer checks both answer tiers, short tier first.
func (m *Manager) GetAnswer(projectID, question string) (models.CachedAnswer, bool) {
	key := QueryKey(projectID, question)
	if ans, ok := m.answers.Get(key); ok {
		return ans, true
	}
	return m.queries.Get(key)
}

// SetAnswer populates both answer tiers.
func (m *Manager) SetAnswer(projectID, question string, ans models.CachedAnswer) {
	key := QueryKey(projectID, question)
	m.answers.Add(key, ans)
	m.queries.Set(key, ans, QueryResultTTL)
}
