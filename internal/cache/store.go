// Package cache provides process-local TTL caches for embeddings and query results.
//
// Caches here affect performance, not correctness: instances are not shared
// across processes and transient inconsistency between horizontally scaled
// replicas is acceptable.
package cache

import (
	"sync"
	"time"
)

// entry is a stored value with its write timestamp and TTL.
type entry[T any] struct {
	data      T
	timestamp time.Time
	ttl       time.Duration
}

// Store is a generic in-memory TTL key-value store.
// All methods are safe for concurrent use.
type Store[T any] struct {
	mu      sync.RWMutex
	entries map[string]entry[T]

	stopOnce sync.Once
	stop     chan struct{}
}

// NewStore creates an empty TTL store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{
		entries: make(map[string]entry[T]),
		stop:    make(chan struct{}),
	}
}

// Get returns the value for key if it is younger than its TTL.
// A stale entry is evicted and reported as a miss.
func (s *Store[T]) Get(key string) (T, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	var zero T
	if !ok {
		return zero, false
	}
	if time.Since(e.timestamp) >= e.ttl {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, ok := s.entries[key]; ok && time.Since(cur.timestamp) >= cur.ttl {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return zero, false
	}
	return e.data, true
}

// Set stores value under key with the given TTL, stamped with the current time.
func (s *Store[T]) Set(key string, value T, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = entry[T]{data: value, timestamp: time.Now(), ttl: ttl}
	s.mu.Unlock()
}

// Delete removes key if present.
func (s *Store[T]) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len returns the number of entries, including any not yet swept.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// sweep removes all expired entries.
func (s *Store[T]) sweep() {
	now := time.Now()
	s.mu.Lock()
	for k, e := range s.entries {
		if now.Sub(e.timestamp) >= e.ttl {
			delete(s.entries, k)
		}
	}
	s.mu.Unlock()
}

// StartSweep launches a background goroutine that evicts expired entries on
// the given interval, bounding memory growth independent of request volume.
// Stop terminates it.
func (s *Store[T]) StartSweep(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop terminates the background sweep, if one was started.
func (s *Store[T]) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}
