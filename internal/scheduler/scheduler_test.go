package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/codescout-ai/codescout/internal/indexer"
	"github.com/codescout-ai/codescout/internal/models"
)

// fakeJobStore is an in-memory JobStore with the same lease semantics as the
// SurrealDB claim transaction: single-winner conditional claim, FIFO order.
type fakeJobStore struct {
	mu   sync.Mutex
	jobs []*models.IndexingJob

	progressErr error
	progress    map[string][]int
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{progress: make(map[string][]int)}
}

func (f *fakeJobStore) add(id, project string, status models.JobStatus, lockedAt *time.Time) *models.IndexingJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := &models.IndexingJob{
		ID:        surrealmodels.NewRecordID("indexing_job", id),
		ProjectID: project,
		RepoRef:   "github.com/acme/" + project,
		Status:    status,
		LockedAt:  lockedAt,
		CreatedAt: time.Now().Add(time.Duration(len(f.jobs)) * time.Millisecond),
	}
	f.jobs = append(f.jobs, job)
	return job
}

func (f *fakeJobStore) get(id string) *models.IndexingJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.ID.ID == id {
			return j
		}
	}
	return nil
}

func (f *fakeJobStore) ClaimNextJob(_ context.Context, owner string, lease time.Duration) (*models.IndexingJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-lease)
	for _, j := range f.jobs {
		eligible := (j.Status == models.JobStatusQueued && j.LockedAt == nil) ||
			(j.Status == models.JobStatusProcessing && j.LockedAt != nil && j.LockedAt.Before(cutoff))
		if !eligible {
			continue
		}
		now := time.Now()
		j.Status = models.JobStatusProcessing
		j.LockedAt = &now
		j.LockedBy = &owner
		copied := *j
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeJobStore) UpdateJobProgress(_ context.Context, id string, progress int) error {
	if f.progressErr != nil {
		return f.progressErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.progress[id] = append(f.progress[id], progress)
	if j := f.getLocked(id); j != nil && progress > j.Progress {
		j.Progress = progress
	}
	return nil
}

func (f *fakeJobStore) getLocked(id string) *models.IndexingJob {
	for _, j := range f.jobs {
		if j.ID.ID == id {
			return j
		}
	}
	return nil
}

func (f *fakeJobStore) CompleteJob(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := f.getLocked(id)
	if j == nil {
		return errors.New("job not found")
	}
	j.Status = models.JobStatusCompleted
	j.Progress = 100
	j.Error = nil
	j.LockedAt = nil
	j.LockedBy = nil
	return nil
}

func (f *fakeJobStore) FailJob(_ context.Context, id string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := f.getLocked(id)
	if j == nil {
		return errors.New("job not found")
	}
	j.Status = models.JobStatusFailed
	j.Error = &message
	j.LockedAt = nil
	j.LockedBy = nil
	return nil
}

// fakeIndexer reports fixed progress steps and then succeeds or fails.
type fakeIndexer struct {
	mu    sync.Mutex
	calls int
	steps []int
	err   error
	delay time.Duration
}

var _ indexer.Indexer = (*fakeIndexer)(nil)

func (f *fakeIndexer) IndexFull(_ context.Context, _, _, _ string, onProgress indexer.ProgressFunc) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	for _, p := range f.steps {
		onProgress(p)
	}
	return f.err
}

func (f *fakeIndexer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRunOnceIdleWithEmptyQueue(t *testing.T) {
	store := newFakeJobStore()
	s := New(store, &fakeIndexer{}, DefaultLease, nil)

	out, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, out.Status)
	assert.Empty(t, out.JobID)
}

func TestRunOnceProcessesQueuedJob(t *testing.T) {
	store := newFakeJobStore()
	store.add("job1", "proj-1", models.JobStatusQueued, nil)
	idx := &fakeIndexer{steps: []int{10, 50, 90}}
	s := New(store, idx, DefaultLease, nil)

	out, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, out.Status)
	assert.Equal(t, "job1", out.JobID)
	assert.Equal(t, "proj-1", out.ProjectID)

	job := store.get("job1")
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Nil(t, job.LockedAt, "lock released on completion")
	assert.Nil(t, job.Error)
	assert.Equal(t, []int{10, 50, 90}, store.progress["job1"])
}

func TestRunOnceReclaimsExpiredLease(t *testing.T) {
	store := newFakeJobStore()
	stale := time.Now().Add(-6 * time.Minute)
	store.add("job1", "proj-1", models.JobStatusProcessing, &stale)
	idx := &fakeIndexer{}
	s := New(store, idx, 5*time.Minute, nil)

	out, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, out.Status)
	assert.Equal(t, 1, idx.callCount(), "expired job restarts from scratch")
}

func TestRunOnceSkipsHeldLease(t *testing.T) {
	store := newFakeJobStore()
	recent := time.Now().Add(-1 * time.Minute)
	store.add("job1", "proj-1", models.JobStatusProcessing, &recent)
	idx := &fakeIndexer{}
	s := New(store, idx, 5*time.Minute, nil)

	out, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeIdle, out.Status)
	assert.Equal(t, 0, idx.callCount())
}

func TestRunOnceFailureMarksJobFailed(t *testing.T) {
	store := newFakeJobStore()
	store.add("job1", "proj-1", models.JobStatusQueued, nil)
	idx := &fakeIndexer{steps: []int{30}, err: errors.New("clone failed")}
	s := New(store, idx, DefaultLease, nil)

	out, err := s.RunOnce(context.Background())
	require.NoError(t, err, "indexer failure is recorded, not returned")
	assert.Equal(t, OutcomeError, out.Status)
	assert.Equal(t, "job1", out.JobID)

	job := store.get("job1")
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "clone failed", *job.Error)
	assert.Nil(t, job.LockedAt, "lock released on failure")
}

func TestProgressWriteFailureDoesNotAbort(t *testing.T) {
	store := newFakeJobStore()
	store.add("job1", "proj-1", models.JobStatusQueued, nil)
	store.progressErr = errors.New("db unavailable")
	idx := &fakeIndexer{steps: []int{25, 75}}
	s := New(store, idx, DefaultLease, nil)

	out, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, out.Status)
	assert.Equal(t, models.JobStatusCompleted, store.get("job1").Status)
}

func TestProgressOnlyWritesIncreases(t *testing.T) {
	store := newFakeJobStore()
	store.add("job1", "proj-1", models.JobStatusQueued, nil)
	idx := &fakeIndexer{steps: []int{40, 40, 20, 80, 150, -5}}
	s := New(store, idx, DefaultLease, nil)

	_, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{40, 80, 100}, store.progress["job1"], "duplicates, regressions and out-of-range values are dropped")
}

func TestConcurrentInvocationsNeverDoubleProcess(t *testing.T) {
	store := newFakeJobStore()
	for i := range 3 {
		store.add(fmt.Sprintf("job%d", i), fmt.Sprintf("proj-%d", i), models.JobStatusQueued, nil)
	}
	idx := &fakeIndexer{delay: 5 * time.Millisecond}

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 8)
	for i := range 8 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s := New(store, idx, DefaultLease, nil)
			out, err := s.RunOnce(context.Background())
			require.NoError(t, err)
			outcomes[n] = out
		}(i)
	}
	wg.Wait()

	seen := make(map[string]int)
	idle := 0
	for _, out := range outcomes {
		switch out.Status {
		case OutcomeSuccess:
			seen[out.JobID]++
		case OutcomeIdle:
			idle++
		}
	}
	assert.Equal(t, 3, idx.callCount(), "each job processed exactly once")
	assert.Equal(t, 5, idle)
	for id, count := range seen {
		assert.Equal(t, 1, count, "job %s processed more than once", id)
	}
}
