// Package models defines data structures for the codescout indexing and query store.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobStatus represents the state of an indexing job.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// IndexingJob represents a persisted repository indexing job.
//
// Jobs are claimed by stateless worker invocations through a lease on
// locked_at: a job whose lease has expired is eligible for re-claim even
// while status is still "processing". Rows are never deleted; completed and
// failed jobs stay around as an audit trail.
type IndexingJob struct {
	ID        surrealmodels.RecordID `json:"id"`
	ProjectID string                 `json:"project_id"`
	RepoRef   string                 `json:"repo_ref"`
	Status    JobStatus              `json:"status"`
	Progress  int                    `json:"progress"`
	LockedAt  *time.Time             `json:"locked_at,omitempty"`
	LockedBy  *string                `json:"locked_by,omitempty"` // Opaque diagnostic owner token
	Error     *string                `json:"error,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}
