// Package indexer defines the repository indexing collaborator.
//
// Fetching, parsing and embedding of repository content live behind this
// interface; the scheduler only drives it and records the outcome.
package indexer

import "context"

// ProgressFunc receives indexing progress as a percentage in [0,100].
type ProgressFunc func(percent int)

// Indexer runs a full index of one repository.
//
// Runs are not resumable: an invocation either finishes start to finish or
// fails entirely, and a retried job starts over from scratch. This is an
// accepted limitation for bounded-size repositories, not a defect.
type Indexer interface {
	// IndexFull indexes the repository at repoRef into the project's
	// embedding rows. credentials is an opaque token passed through to the
	// fetch layer; it is never inspected or persisted here.
	IndexFull(ctx context.Context, projectID, repoRef, credentials string, onProgress ProgressFunc) error
}
