package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"

	"github.com/codescout-ai/codescout/internal/models"
)

// CreateJob enqueues a new indexing job for a project.
func (c *Client) CreateJob(ctx context.Context, projectID, repoRef string) (*models.IndexingJob, error) {
	results, err := surrealdb.Query[[]models.IndexingJob](ctx, c.db, `
		CREATE indexing_job SET
			project_id = $project,
			repo_ref = $repo,
			status = 'queued',
			progress = 0
		RETURN AFTER
	`, map[string]any{
		"project": projectID,
		"repo":    repoRef,
	})
	if err != nil {
		return nil, fmt.Errorf("create job: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create job: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// claimSQL atomically selects and locks one eligible job inside a single
// transaction. Eligibility: freshly queued, or processing with an expired
// lease. FIFO by created_at. The conditional UPDATE and the SELECT run in the
// same transaction, so two concurrent claimants can never both win the same
// job: the loser gets a transaction conflict, which the caller maps to
// "nothing claimed this round".
const claimSQL = `
	BEGIN TRANSACTION;
	LET $eligible = (
		SELECT * FROM indexing_job
		WHERE (status = 'queued' AND locked_at = NONE)
		   OR (status = 'processing' AND locked_at != NONE AND locked_at < $cutoff)
		ORDER BY created_at ASC
		LIMIT 1
	);
	IF array::len($eligible) > 0 {
		(UPDATE $eligible[0].id SET
			status = 'processing',
			locked_at = time::now(),
			locked_by = $owner,
			updated_at = time::now()
		RETURN AFTER)
	} ELSE {
		[]
	};
	COMMIT TRANSACTION;
`

// ClaimNextJob claims the oldest eligible job for owner, or returns nil if
// none is eligible (including when the claim raced and lost).
func (c *Client) ClaimNextJob(ctx context.Context, owner string, lease time.Duration) (*models.IndexingJob, error) {
	results, err := surrealdb.Query[[]models.IndexingJob](ctx, c.db, claimSQL, map[string]any{
		"owner":  owner,
		"cutoff": time.Now().Add(-lease),
	})
	if err != nil {
		if errors.Is(wrapQueryError(err), ErrTransactionConflict) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}

	// The claim result is the final statement of the transaction.
	claimed := (*results)[len(*results)-1].Result
	if len(claimed) == 0 {
		return nil, nil
	}
	return &claimed[0], nil
}

// UpdateJobProgress writes job progress. Progress only ever increases within
// a processing run; stale writes are ignored by the WHERE guard.
func (c *Client) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("indexing_job", $id) SET
			progress = $progress,
			updated_at = time::now()
		WHERE progress <= $progress
	`, map[string]any{"id": id, "progress": progress})
	if err != nil {
		return fmt.Errorf("update job progress: %w", wrapQueryError(err))
	}
	return nil
}

// CompleteJob marks a job completed and releases its lock.
func (c *Client) CompleteJob(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("indexing_job", $id) SET
			status = 'completed',
			progress = 100,
			error = NONE,
			locked_at = NONE,
			locked_by = NONE,
			updated_at = time::now()
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("complete job: %w", wrapQueryError(err))
	}
	return nil
}

// FailJob marks a job failed with the failure message and releases its lock.
func (c *Client) FailJob(ctx context.Context, id string, message string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("indexing_job", $id) SET
			status = 'failed',
			error = $error,
			locked_at = NONE,
			locked_by = NONE,
			updated_at = time::now()
	`, map[string]any{"id": id, "error": message})
	if err != nil {
		return fmt.Errorf("fail job: %w", wrapQueryError(err))
	}
	return nil
}

// GetJob retrieves a job by ID.
func (c *Client) GetJob(ctx context.Context, id string) (*models.IndexingJob, error) {
	results, err := surrealdb.Query[[]models.IndexingJob](ctx, c.db, `
		SELECT * FROM type::record("indexing_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	return &(*results)[0].Result[0], nil
}

// ListJobs returns the most recent jobs, newest first.
func (c *Client) ListJobs(ctx context.Context, limit int) ([]models.IndexingJob, error) {
	if limit <= 0 {
		limit = 50
	}
	results, err := surrealdb.Query[[]models.IndexingJob](ctx, c.db, `
		SELECT * FROM indexing_job ORDER BY created_at DESC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 {
		return []models.IndexingJob{}, nil
	}
	return (*results)[0].Result, nil
}
