package store

import (
	"context"
	"sync"
	"time"

	"github.com/DeividiJaeger/crewai-wiki-agent/internal/research"
)

// MemoryStore keeps jobs in process memory. It is the default driver and the
// one used by most tests. State is lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job)}
}

func (s *MemoryStore) CreateJob(ctx context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (s *MemoryStore) SetRunning(ctx context.Context, id string, startedAt time.Time) error {
	return s.update(id, func(job *Job) {
		job.Status = StatusRunning
		job.StartedAt = &startedAt
	})
}

func (s *MemoryStore) Complete(ctx context.Context, id string, result research.Result, finishedAt time.Time) error {
	return s.update(id, func(job *Job) {
		job.Status = StatusCompleted
		job.Result = &result
		job.FinishedAt = &finishedAt
	})
}

func (s *MemoryStore) Fail(ctx context.Context, id string, jobErr string, finishedAt time.Time) error {
	return s.update(id, func(job *Job) {
		job.Status = StatusFailed
		job.Error = jobErr
		job.FinishedAt = &finishedAt
	})
}

func (s *MemoryStore) DeleteJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []string
	for id, job := range s.jobs {
		if job.Finished() && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed = append(removed, id)
		}
	}
	return removed, nil
}

func (s *MemoryStore) GetCounts(ctx context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c Counts
	for _, job := range s.jobs {
		switch job.Status {
		case StatusPending, StatusRunning:
			c.Active++
		case StatusCompleted:
			c.Results++
		}
	}
	return c, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) update(id string, apply func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return ErrNotFound
	}
	apply(&job)
	s.jobs[id] = job
	return nil
}
