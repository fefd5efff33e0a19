// Package metrics records query telemetry rows and aggregates them into
// per-project observability reports.
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/codescout-ai/codescout/internal/models"
)

const (
	// queueSize bounds the background write queue. Under sustained overload
	// new rows are dropped and counted; metric loss is accepted rather than
	// blocking the request path.
	queueSize = 256

	// maxErrorLen bounds persisted error messages.
	maxErrorLen = 500

	truncationMarker = "..."

	// writeTimeout bounds each background persistence attempt.
	writeTimeout = 10 * time.Second
)

// MetricStore persists metric rows.
type MetricStore interface {
	InsertMetric(ctx context.Context, m models.QueryMetricInput) error
}

// Recorder appends metric rows asynchronously. Recording is fire-and-forget
// relative to the caller's response path: persistence failures are logged and
// never retried or surfaced.
type Recorder struct {
	store   MetricStore
	logger  *slog.Logger
	queue   chan models.QueryMetricInput
	done    chan struct{}
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// NewRecorder creates a recorder and starts its background writer.
func NewRecorder(store MetricStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{
		store:  store,
		logger: logger,
		queue:  make(chan models.QueryMetricInput, queueSize),
		done:   make(chan struct{}),
	}
	go r.drain()
	return r
}

func (r *Recorder) drain() {
	defer close(r.done)
	for m := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := r.store.InsertMetric(ctx, m); err != nil {
			r.logger.Warn("failed to persist query metric",
				"project_id", m.ProjectID, "route", m.RouteType, "error", err)
		}
		cancel()
	}
}

// Record enqueues one metric row without blocking. When the queue is full or
// the recorder is closed the row is dropped and counted.
func (r *Recorder) Record(m models.QueryMetricInput) {
	if m.ErrorMessage != nil {
		truncated := TruncateMessage(*m.ErrorMessage)
		m.ErrorMessage = &truncated
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		n := r.dropped.Add(1)
		r.logger.Warn("metric recorded after close, dropping row", "project_id", m.ProjectID, "dropped_total", n)
		return
	}

	select {
	case r.queue <- m:
	default:
		n := r.dropped.Add(1)
		r.logger.Warn("metric queue full, dropping row", "project_id", m.ProjectID, "dropped_total", n)
	}
}

// Dropped returns how many rows were discarded due to queue overflow.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close drains queued rows and stops the background writer. Safe to call
// more than once; Record calls after Close are dropped.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

// TruncateMessage bounds a message to maxErrorLen with a truncation marker.
// The cut backs off to a rune boundary so the result stays valid UTF-8.
func TruncateMessage(s string) string {
	if len(s) <= maxErrorLen {
		return s
	}
	cut := maxErrorLen - len(truncationMarker)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}
