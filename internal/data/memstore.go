package data

import (
	"context"
	"sync"

	"github.com/lessonforge/videogen/internal/domain/model"
)

// MemStore is an in-memory JobStore. It is the alpha default: a single
// coarse lock over the whole map is enough at the expected concurrency, and
// every update is an atomic read-modify-write under that lock. Readers get
// deep copies so a poller can never observe a record mid-mutation.
type MemStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{jobs: make(map[string]*model.Job)}
}

// Create stores a new job record.
func (s *MemStore) Create(_ context.Context, job *model.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return ErrJobExists
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get returns a snapshot of the job.
func (s *MemStore) Get(_ context.Context, id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

// Update applies fn to the canonical record under the write lock.
func (s *MemStore) Update(_ context.Context, id string, fn func(*model.Job) error) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}

	// Mutate a copy so a failing fn cannot leave the canonical record
	// half-updated.
	next := job.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.jobs[id] = next
	return next.Clone(), nil
}

// List returns snapshots of all jobs.
func (s *MemStore) List(_ context.Context) ([]*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	return out, nil
}

// Delete removes a job record.
func (s *MemStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return false, nil
	}
	delete(s.jobs, id)
	return true, nil
}
