// Package agent implements the staged research pipeline: an ordered crew of
// role-driven stages, each backed by the completion service and optionally by
// retrieval tools whose output is folded into the stage prompt.
package agent

import (
	"context"
	"fmt"
)

// Role describes the persona a stage adopts when talking to the completion
// service. It becomes the system message.
type Role struct {
	Name      string
	Goal      string
	Backstory string
}

// Task describes what a stage must produce.
type Task struct {
	Description    string
	ExpectedOutput string
}

// Tool is a retrieval helper a stage may consult before prompting the model.
// Gather failures are reported inline in the stage context rather than
// aborting the run; only completion-service failures abort a stage.
type Tool interface {
	Name() string
	Gather(ctx context.Context, topic string) (string, error)
}

// StageError marks a pipeline stage that could not produce output. The crew
// stops at the first one.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
