// Package engine answers questions about indexed codebases using cached
// retrieval-augmented generation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/codescout-ai/codescout/internal/cache"
	"github.com/codescout-ai/codescout/internal/llm"
	"github.com/codescout-ai/codescout/internal/models"
)

// NoRelevantCodeAnswer is returned verbatim when retrieval finds nothing.
// Generation is skipped entirely in that case.
const NoRelevantCodeAnswer = "I could not find any relevant code for this question in the indexed project."

var (
	// ErrInvalidInput signals a malformed request (empty project or question).
	ErrInvalidInput = errors.New("invalid input")

	// ErrProjectNotIndexed signals a query against a project with no embeddings.
	ErrProjectNotIndexed = errors.New("project is not indexed")

	// ErrQueryFailed is the generic error surfaced to callers for any internal
	// failure. The underlying cause goes to telemetry only.
	ErrQueryFailed = errors.New("failed to process your question")
)

// VectorStore is the retrieval surface the engine needs from the database.
type VectorStore interface {
	SearchEmbeddings(ctx context.Context, projectID string, embedding []float32, k int) ([]models.RetrievedChunk, error)
	CountEmbeddings(ctx context.Context, projectID string) (int, error)
}

// MetricSink receives one telemetry row per request attempt.
type MetricSink interface {
	Record(m models.QueryMetricInput)
}

// Engine orchestrates the query path: cache lookup, embedding, retrieval,
// generation and metric recording.
type Engine struct {
	store     VectorStore
	embedder  llm.Embedder
	generator llm.Generator
	caches    *cache.Manager
	metrics   MetricSink
	logger    *slog.Logger

	topK          int
	historyWindow int

	// served flips after the first request; used to tag cold-start latency.
	served atomic.Bool
}

// Options tune the engine's retrieval and prompting behavior.
type Options struct {
	TopK          int
	HistoryWindow int
}

// New creates a query engine. Collaborators are injected explicitly; the
// engine holds no global state beyond its own caches reference.
func New(store VectorStore, embedder llm.Embedder, generator llm.Generator, caches *cache.Manager, metrics MetricSink, logger *slog.Logger, opts Options) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = 8
	}
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = 6
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:         store,
		embedder:      embedder,
		generator:     generator,
		caches:        caches,
		metrics:       metrics,
		logger:        logger,
		topK:          opts.TopK,
		historyWindow: opts.HistoryWindow,
	}
}

// Answer responds to a question about a project, grounded on its indexed code.
//
// The happy path is cache -> embed -> retrieve -> generate -> cache + metric.
// Any internal failure is recorded as a failure metric and surfaced as the
// generic ErrQueryFailed; the root cause never reaches the caller.
func (e *Engine) Answer(ctx context.Context, projectID, question string, history []models.ConversationTurn) (*models.CachedAnswer, error) {
	if projectID == "" || question == "" {
		return nil, fmt.Errorf("%w: project id and question are required", ErrInvalidInput)
	}

	start := time.Now()
	coldStart := !e.served.Swap(true)

	if ans, ok := e.caches.GetAnswer(projectID, question); ok {
		e.recordSuccess(projectID, start, coldStart, successFields{
			cacheHit:   true,
			memoryHits: len(ans.Sources),
		})
		return &ans, nil
	}

	count, err := e.store.CountEmbeddings(ctx, projectID)
	if err != nil {
		e.recordFailure(projectID, start, coldStart, err)
		return nil, ErrQueryFailed
	}
	if count == 0 {
		return nil, ErrProjectNotIndexed
	}

	vector, err := e.embedQuestion(ctx, question)
	if err != nil {
		e.recordFailure(projectID, start, coldStart, err)
		return nil, ErrQueryFailed
	}

	chunks, err := e.store.SearchEmbeddings(ctx, projectID, vector, e.topK)
	if err != nil {
		e.recordFailure(projectID, start, coldStart, err)
		return nil, ErrQueryFailed
	}

	if len(chunks) == 0 {
		// Nothing retrieved: answer without generation and without caching,
		// so the project gets a fresh chance once indexing catches up.
		ans := &models.CachedAnswer{Answer: NoRelevantCodeAnswer, Sources: []models.Source{}}
		e.recordSuccess(projectID, start, coldStart, successFields{})
		return ans, nil
	}

	messages := buildMessages(question, chunks, trimHistory(history, e.historyWindow))
	completion, err := e.generator.Complete(ctx, messages)
	if err != nil {
		e.recordFailure(projectID, start, coldStart, err)
		return nil, ErrQueryFailed
	}

	ans := models.CachedAnswer{
		Answer:  completion.Text,
		Sources: toSources(chunks),
	}
	e.caches.SetAnswer(projectID, question, ans)

	e.recordSuccess(projectID, start, coldStart, successFields{
		memoryHits:    len(chunks),
		avgSimilarity: avgSimilarity(chunks),
		completion:    completion,
	})
	return &ans, nil
}

// RetrieveTopK runs retrieval only, with no generation and no answer caching.
// The embedding cache may still be populated as a side effect.
func (e *Engine) RetrieveTopK(ctx context.Context, projectID, question string) ([]models.RetrievedChunk, error) {
	if projectID == "" || question == "" {
		return nil, fmt.Errorf("%w: project id and question are required", ErrInvalidInput)
	}
	vector, err := e.embedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}
	return e.store.SearchEmbeddings(ctx, projectID, vector, e.topK)
}

// embedQuestion returns the question's embedding, reusing the cache when fresh.
// An empty vector from the provider is treated as an upstream failure.
func (e *Engine) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	if vector, ok := e.caches.GetEmbedding(question); ok {
		return vector, nil
	}
	vector, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vector) == 0 {
		return nil, errors.New("embedding provider returned an empty vector")
	}
	e.caches.SetEmbedding(question, vector)
	return vector, nil
}

type successFields struct {
	cacheHit      bool
	memoryHits    int
	avgSimilarity float64
	completion    *llm.Completion
}

func (e *Engine) recordSuccess(projectID string, start time.Time, coldStart bool, f successFields) {
	m := models.QueryMetricInput{
		ProjectID:      projectID,
		RouteType:      models.RouteQuery,
		ModelUsed:      e.generator.Model(),
		RetrievalCount: f.memoryHits,
		MemoryHitCount: f.memoryHits,
		LatencyMs:      time.Since(start).Milliseconds(),
		Success:        true,
		CacheHit:       &f.cacheHit,
		WasColdStart:   &coldStart,
	}
	if f.completion != nil {
		m.PromptTokens = f.completion.PromptTokens
		m.CompletionTokens = f.completion.CompletionTokens
		m.TotalTokens = f.completion.TotalTokens
		m.EstimatedCostUsd = llm.EstimateCost(f.completion.PromptTokens, f.completion.CompletionTokens, e.generator.Model())
	}
	if f.memoryHits > 0 && f.avgSimilarity > 0 {
		m.AvgMemorySimilarity = &f.avgSimilarity
	}
	e.metrics.Record(m)
}

func (e *Engine) recordFailure(projectID string, start time.Time, coldStart bool, cause error) {
	e.logger.Error("query failed", "project_id", projectID, "error", cause)
	msg := cause.Error()
	cacheHit := false
	e.metrics.Record(models.QueryMetricInput{
		ProjectID:    projectID,
		RouteType:    models.RouteQuery,
		ModelUsed:    e.generator.Model(),
		LatencyMs:    time.Since(start).Milliseconds(),
		Success:      false,
		ErrorMessage: &msg,
		CacheHit:     &cacheHit,
		WasColdStart: &coldStart,
	})
}

func toSources(chunks []models.RetrievedChunk) []models.Source {
	sources := make([]models.Source, len(chunks))
	for i, c := range chunks {
		sources[i] = models.Source{
			FileName:   c.FileName,
			Similarity: c.Similarity,
			Summary:    c.Summary,
		}
	}
	return sources
}

func avgSimilarity(chunks []models.RetrievedChunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, c := range chunks {
		sum += c.Similarity
	}
	return sum / float64(len(chunks))
}

func trimHistory(history []models.ConversationTurn, window int) []models.ConversationTurn {
	if len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}
