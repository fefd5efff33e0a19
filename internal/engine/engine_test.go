package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescout-ai/codescout/internal/cache"
	"github.com/codescout-ai/codescout/internal/llm"
	"github.com/codescout-ai/codescout/internal/models"
)

type fakeVectorStore struct {
	chunks    []models.RetrievedChunk
	count     int
	countErr  error
	searchErr error
	searches  int
}

func (f *fakeVectorStore) SearchEmbeddings(_ context.Context, _ string, _ []float32, k int) ([]models.RetrievedChunk, error) {
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if len(f.chunks) > k {
		return f.chunks[:k], nil
	}
	return f.chunks, nil
}

func (f *fakeVectorStore) CountEmbeddings(_ context.Context, _ string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.count, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) Model() string  { return "fake-embed" }
func (f *fakeEmbedder) Dimension() int { return len(f.vector) }

type fakeGenerator struct {
	text  string
	err   error
	calls int
	last  []llm.Message
}

func (f *fakeGenerator) Complete(_ context.Context, messages []llm.Message) (*llm.Completion, error) {
	f.calls++
	f.last = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Completion{Text: f.text, PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150}, nil
}

func (f *fakeGenerator) Model() string { return "gpt-4o-mini" }

type recordedMetrics struct {
	mu   sync.Mutex
	rows []models.QueryMetricInput
}

func (r *recordedMetrics) Record(m models.QueryMetricInput) {
	r.mu.Lock()
	r.rows = append(r.rows, m)
	r.mu.Unlock()
}

func (r *recordedMetrics) all() []models.QueryMetricInput {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.QueryMetricInput(nil), r.rows...)
}

type engineFixture struct {
	store     *fakeVectorStore
	embedder  *fakeEmbedder
	generator *fakeGenerator
	metrics   *recordedMetrics
	caches    *cache.Manager
	engine    *Engine
}

func newFixture(t *testing.T, store *fakeVectorStore) *engineFixture {
	t.Helper()
	f := &engineFixture{
		store:     store,
		embedder:  &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}},
		generator: &fakeGenerator{text: "the scheduler claims one job per run"},
		metrics:   &recordedMetrics{},
		caches:    cache.NewManager(),
	}
	t.Cleanup(f.caches.Close)
	f.engine = New(store, f.embedder, f.generator, f.caches, f.metrics, nil, Options{TopK: 3, HistoryWindow: 2})
	return f
}

func someChunks() []models.RetrievedChunk {
	return []models.RetrievedChunk{
		{FileName: "scheduler.go", SourceCode: "func RunOnce() {}", Summary: "job claim loop", Similarity: 0.9},
		{FileName: "jobs.go", SourceCode: "func ClaimNextJob() {}", Summary: "atomic claim", Similarity: 0.7},
	}
}

func TestAnswerHappyPath(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 10, chunks: someChunks()})

	ans, err := f.engine.Answer(context.Background(), "proj-1", "how are jobs claimed?", nil)
	require.NoError(t, err)
	assert.Equal(t, "the scheduler claims one job per run", ans.Answer)
	require.Len(t, ans.Sources, 2)
	assert.Equal(t, "scheduler.go", ans.Sources[0].FileName)
	assert.InDelta(t, 0.9, ans.Sources[0].Similarity, 1e-9)

	rows := f.metrics.all()
	require.Len(t, rows, 1)
	m := rows[0]
	assert.True(t, m.Success)
	assert.Equal(t, models.RouteQuery, m.RouteType)
	assert.Equal(t, 2, m.RetrievalCount)
	assert.Equal(t, 150, m.TotalTokens)
	assert.Greater(t, m.EstimatedCostUsd, 0.0)
	require.NotNil(t, m.AvgMemorySimilarity)
	assert.InDelta(t, 0.8, *m.AvgMemorySimilarity, 1e-9)
	require.NotNil(t, m.WasColdStart)
	assert.True(t, *m.WasColdStart, "first request in the process is a cold start")
}

func TestAnswerValidatesInput(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 1})

	_, err := f.engine.Answer(context.Background(), "", "question", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.engine.Answer(context.Background(), "proj-1", "", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, f.metrics.all(), "validation failures are not metered")
}

func TestAnswerUnindexedProject(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 0})

	_, err := f.engine.Answer(context.Background(), "proj-1", "anything?", nil)
	assert.ErrorIs(t, err, ErrProjectNotIndexed)
	assert.Equal(t, 0, f.embedder.calls)
}

func TestAnswerZeroCandidatesSkipsGeneration(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 10, chunks: nil})

	ans, err := f.engine.Answer(context.Background(), "proj-1", "unrelated question", nil)
	require.NoError(t, err)
	assert.Equal(t, NoRelevantCodeAnswer, ans.Answer)
	assert.Empty(t, ans.Sources)
	assert.Equal(t, 0, f.generator.calls, "generation is skipped when nothing is retrieved")

	// The empty answer is not cached: a later query retries retrieval.
	_, err = f.engine.Answer(context.Background(), "proj-1", "unrelated question", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.searches)
}

func TestAnswerCachesIdenticalQueries(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 10, chunks: someChunks()})

	first, err := f.engine.Answer(context.Background(), "proj-1", "how does indexing work?", nil)
	require.NoError(t, err)
	second, err := f.engine.Answer(context.Background(), "proj-1", "how does indexing work?", nil)
	require.NoError(t, err)

	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, first.Sources, second.Sources)
	assert.Equal(t, 1, f.generator.calls, "second request is served from cache")

	rows := f.metrics.all()
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].CacheHit)
	assert.False(t, *rows[0].CacheHit)
	require.NotNil(t, rows[1].CacheHit)
	assert.True(t, *rows[1].CacheHit)
	require.NotNil(t, rows[1].WasColdStart)
	assert.False(t, *rows[1].WasColdStart)
}

func TestAnswerScopesCacheByProject(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 10, chunks: someChunks()})

	_, err := f.engine.Answer(context.Background(), "proj-1", "same question", nil)
	require.NoError(t, err)
	_, err = f.engine.Answer(context.Background(), "proj-2", "same question", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, f.generator.calls, "cache keys include the project")
}

func TestAnswerEmbeddingFailureRecordsFailureMetric(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 10})
	f.embedder.err = errors.New("provider timeout: " + strings.Repeat("x", 600))

	_, err := f.engine.Answer(context.Background(), "proj-1", "question", nil)
	assert.ErrorIs(t, err, ErrQueryFailed)

	rows := f.metrics.all()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Success)
	require.NotNil(t, rows[0].ErrorMessage)
	assert.NotEmpty(t, *rows[0].ErrorMessage)
	assert.Equal(t, 0, f.generator.calls)
}

func TestAnswerEmptyVectorIsUpstreamFailure(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 10})
	f.embedder.vector = nil

	_, err := f.engine.Answer(context.Background(), "proj-1", "question", nil)
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.Equal(t, 0, f.store.searches)
}

func TestAnswerGenerationFailureIsGeneric(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 10, chunks: someChunks()})
	f.generator.err = errors.New("rate limited")

	_, err := f.engine.Answer(context.Background(), "proj-1", "question", nil)
	assert.ErrorIs(t, err, ErrQueryFailed)
	assert.NotContains(t, err.Error(), "rate limited", "root cause stays in telemetry")

	rows := f.metrics.all()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Success)
}

func TestAnswerReusesCachedEmbedding(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 10, chunks: nil})

	_, err := f.engine.Answer(context.Background(), "proj-1", "question", nil)
	require.NoError(t, err)
	_, err = f.engine.Answer(context.Background(), "proj-2", "question", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.embedder.calls, "embedding keyed by text alone")
}

func TestAnswerTrimsHistoryWindow(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 10, chunks: someChunks()})
	history := []models.ConversationTurn{
		{Role: "user", Content: "turn 1"},
		{Role: "assistant", Content: "turn 2"},
		{Role: "user", Content: "turn 3"},
		{Role: "assistant", Content: "turn 4"},
	}

	_, err := f.engine.Answer(context.Background(), "proj-1", "question", history)
	require.NoError(t, err)

	// system + last 2 turns + question.
	require.Len(t, f.generator.last, 4)
	assert.Equal(t, "turn 3", f.generator.last[1].Content)
	assert.Equal(t, "turn 4", f.generator.last[2].Content)
	assert.Equal(t, "question", f.generator.last[3].Content)
}

func TestRetrieveTopKDoesNotGenerate(t *testing.T) {
	f := newFixture(t, &fakeVectorStore{count: 10, chunks: someChunks()})

	chunks, err := f.engine.RetrieveTopK(context.Background(), "proj-1", "question")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
	assert.Equal(t, 0, f.generator.calls)
	assert.Empty(t, f.metrics.all())
}

func TestBuildMessagesIncludesSnippets(t *testing.T) {
	msgs := buildMessages("what does RunOnce do?", someChunks(), nil)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "scheduler.go")
	assert.Contains(t, msgs[0].Content, "func RunOnce() {}")
	assert.Contains(t, msgs[0].Content, "job claim loop")
	assert.Equal(t, "what does RunOnce do?", msgs[1].Content)
}
