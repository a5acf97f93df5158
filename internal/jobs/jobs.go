// Package jobs runs the asynchronous research job lifecycle: submission,
// background execution through the crew pipeline, status and result lookup,
// deletion and retention sweeps.
package jobs

import (
	"context"
	"errors"
)

var (
	// ErrInvalidInput rejects submissions whose topic is blank.
	ErrInvalidInput = errors.New("topic must not be blank")
	// ErrNotReady means the job exists but has no consumable result. Failed
	// jobs stay not-ready; their error is visible through status only.
	ErrNotReady = errors.New("result not ready")
)

// Runner abstracts the crew pipeline so the manager can be tested without a
// completion service.
type Runner interface {
	Kickoff(ctx context.Context, topic string) (string, error)
}

// Ticket acknowledges an accepted submission.
type Ticket struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	ETASeconds int    `json:"etaSeconds"`
}

// StatusReport describes where a job currently stands. ETASeconds is only
// present while the job is running and the estimate is not yet exhausted.
type StatusReport struct {
	ID         string `json:"id"`
	Topic      string `json:"topic"`
	Status     string `json:"status"`
	ETASeconds *int   `json:"etaSeconds,omitempty"`
	Error      string `json:"error,omitempty"`
}
