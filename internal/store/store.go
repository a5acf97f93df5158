// Package store persists research jobs and their results behind a driver
// interface with memory, redis and postgres implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DeividiJaeger/crewai-wiki-agent/config"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/research"
)

// Job statuses. A job moves Pending -> Running -> Completed|Failed; deletion
// removes it entirely.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrNotFound is returned when a job id has never been seen or was deleted.
var ErrNotFound = errors.New("job not found")

// Job is the persisted record of one research request.
type Job struct {
	ID         string           `json:"id"`
	Topic      string           `json:"topic"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	Result     *research.Result `json:"result,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// Finished reports whether the job reached a terminal status.
func (j Job) Finished() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// Counts is a snapshot used by the health endpoint.
type Counts struct {
	Active  int `json:"active"`
	Results int `json:"results"`
}

// Store is the persistence contract for research jobs.
type Store interface {
	// CreateJob inserts a new pending job.
	CreateJob(ctx context.Context, job Job) error
	// GetJob returns the job or ErrNotFound.
	GetJob(ctx context.Context, id string) (Job, error)
	// SetRunning transitions the job to running at the given instant.
	SetRunning(ctx context.Context, id string, startedAt time.Time) error
	// Complete stores the result and marks the job completed.
	Complete(ctx context.Context, id string, result research.Result, finishedAt time.Time) error
	// Fail records the error and marks the job failed.
	Fail(ctx context.Context, id string, jobErr string, finishedAt time.Time) error
	// DeleteJob removes the job and its result in one step. ErrNotFound when
	// the id does not exist, including after a previous delete.
	DeleteJob(ctx context.Context, id string) error
	// DeleteFinishedBefore removes terminal jobs that finished before the
	// cutoff and returns their ids.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	// GetCounts reports active jobs and stored results.
	GetCounts(ctx context.Context) (Counts, error)
	// Close releases backend resources.
	Close() error
}

// New builds the store selected by the storage configuration.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis)
	case "postgres":
		return NewPostgresStore(ctx, cfg.Postgres.DSN())
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
