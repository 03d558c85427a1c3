package utils

import (
	"context"
	"sync"
	"time"
)

// WorkerPool runs jobs on a bounded number of goroutines and spaces job
// starts by at least the configured interval.
type WorkerPool struct {
	semaphore   chan struct{}
	interval    time.Duration
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastRequest time.Time
}

// NewWorkerPool creates a WorkerPool with the given concurrency and rate limit.
func NewWorkerPool(maxWorkers, rateLimitMs int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &WorkerPool{
		semaphore: make(chan struct{}, maxWorkers),
		interval:  time.Duration(rateLimitMs) * time.Millisecond,
	}
}

// Submit enqueues a job, blocking while all workers are busy. It returns
// false without running the job if ctx is done before a worker frees up.
func (wp *WorkerPool) Submit(ctx context.Context, job func()) bool {
	select {
	case wp.semaphore <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	wp.wg.Add(1)
	go func() {
		defer wp.wg.Done()
		defer func() { <-wp.semaphore }()

		wp.enforceRateLimit()
		job()
	}()
	return true
}

// Wait blocks until all submitted jobs have completed.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) enforceRateLimit() {
	if wp.interval <= 0 {
		return
	}
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if elapsed := time.Since(wp.lastRequest); elapsed < wp.interval {
		time.Sleep(wp.interval - elapsed)
	}
	wp.lastRequest = time.Now()
}

// StringSet is a thread-safe set used to track visited listing URLs.
type StringSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewStringSet creates an empty StringSet.
func NewStringSet() *StringSet {
	return &StringSet{seen: make(map[string]struct{})}
}

// Add returns true if s was newly added, false if already present.
func (s *StringSet) Add(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[v]; exists {
		return false
	}
	s.seen[v] = struct{}{}
	return true
}

// Contains reports whether v has been added.
func (s *StringSet) Contains(v string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.seen[v]
	return exists
}

// Size returns the number of unique values tracked.
func (s *StringSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
