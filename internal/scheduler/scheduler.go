// Package scheduler claims and processes indexing jobs across stateless
// worker invocations.
//
// Each invocation claims at most one job and exits. There is no mutual
// exclusion between invocations; correctness rests entirely on the store's
// atomic conditional claim plus lease expiry for crash recovery.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/codescout-ai/codescout/internal/indexer"
	"github.com/codescout-ai/codescout/internal/models"
)

// DefaultLease is how long a claim is honored before the job becomes
// eligible for re-claim by another worker.
const DefaultLease = 5 * time.Minute

// JobStore is the persistence surface the scheduler needs.
type JobStore interface {
	ClaimNextJob(ctx context.Context, owner string, lease time.Duration) (*models.IndexingJob, error)
	UpdateJobProgress(ctx context.Context, id string, progress int) error
	CompleteJob(ctx context.Context, id string) error
	FailJob(ctx context.Context, id string, message string) error
}

// OutcomeStatus reports what a worker invocation did.
type OutcomeStatus string

const (
	OutcomeIdle    OutcomeStatus = "idle"
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeError   OutcomeStatus = "error"
)

// Outcome describes one RunOnce invocation, for observability.
type Outcome struct {
	Status    OutcomeStatus `json:"status"`
	JobID     string        `json:"job_id,omitempty"`
	ProjectID string        `json:"project_id,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Scheduler drives the indexing collaborator against the job store.
type Scheduler struct {
	jobs    JobStore
	indexer indexer.Indexer
	logger  *slog.Logger
	owner   string
	lease   time.Duration
}

// New creates a scheduler. The owner token identifies this worker in
// locked_by for diagnostics only; correctness never depends on it.
func New(jobs JobStore, idx indexer.Indexer, lease time.Duration, logger *slog.Logger) *Scheduler {
	if lease <= 0 {
		lease = DefaultLease
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:    jobs,
		indexer: idx,
		logger:  logger,
		owner:   fmt.Sprintf("%d-%d-%s", os.Getpid(), time.Now().Unix(), uuid.New().String()[:8]),
		lease:   lease,
	}
}

// RunOnce claims at most one eligible job and processes it to completion.
// With nothing eligible it is a no-op and safe to invoke repeatedly.
func (s *Scheduler) RunOnce(ctx context.Context) (Outcome, error) {
	job, err := s.jobs.ClaimNextJob(ctx, s.owner, s.lease)
	if err != nil {
		return Outcome{Status: OutcomeError, Error: err.Error()}, fmt.Errorf("claim next job: %w", err)
	}
	if job == nil {
		s.logger.Debug("no eligible jobs", "owner", s.owner)
		return Outcome{Status: OutcomeIdle}, nil
	}

	jobID, err := models.RecordIDString(job.ID)
	if err != nil {
		return Outcome{Status: OutcomeError, Error: err.Error()}, fmt.Errorf("job id: %w", err)
	}

	s.logger.Info("job claimed", "job_id", jobID, "project_id", job.ProjectID, "owner", s.owner)

	if err := s.process(ctx, jobID, job); err != nil {
		return Outcome{
			Status:    OutcomeError,
			JobID:     jobID,
			ProjectID: job.ProjectID,
			Error:     err.Error(),
		}, nil
	}

	return Outcome{Status: OutcomeSuccess, JobID: jobID, ProjectID: job.ProjectID}, nil
}

// process runs the indexer for a claimed job and records the terminal state.
// Indexing always restarts from scratch; there is no checkpoint to resume.
func (s *Scheduler) process(ctx context.Context, jobID string, job *models.IndexingJob) error {
	lastWritten := -1
	onProgress := func(percent int) {
		if percent < 0 {
			percent = 0
		} else if percent > 100 {
			percent = 100
		}
		// Only write increases; progress is monotonic within a run.
		if percent <= lastWritten {
			return
		}
		lastWritten = percent

		// Progress writes must never abort processing.
		if err := s.jobs.UpdateJobProgress(ctx, jobID, percent); err != nil {
			s.logger.Warn("failed to persist job progress", "job_id", jobID, "progress", percent, "error", err)
		}
	}

	err := s.indexer.IndexFull(ctx, job.ProjectID, job.RepoRef, "", onProgress)
	if err != nil {
		s.logger.Error("indexing failed", "job_id", jobID, "project_id", job.ProjectID, "error", err)
		if failErr := s.jobs.FailJob(ctx, jobID, err.Error()); failErr != nil {
			// The lease will expire and the job will be re-claimed.
			s.logger.Warn("failed to persist job failure", "job_id", jobID, "error", failErr)
		}
		return err
	}

	if err := s.jobs.CompleteJob(ctx, jobID); err != nil {
		s.logger.Warn("failed to persist job completion", "job_id", jobID, "error", err)
		return err
	}

	s.logger.Info("job completed", "job_id", jobID, "project_id", job.ProjectID)
	return nil
}

// RunLoop invokes RunOnce on an interval until the context is cancelled.
// Used by the CLI worker; serverless deployments call RunOnce per trigger.
func (s *Scheduler) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Warn("worker iteration failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
