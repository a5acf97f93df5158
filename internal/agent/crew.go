package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/DeividiJaeger/crewai-wiki-agent/internal/llm"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/telemetry"
)

// Crew runs an ordered list of stages strictly sequentially, feeding each
// stage's output into the next. The last stage's output is the run result.
type Crew struct {
	Name      string
	stages    []*Stage
	provider  llm.Provider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewCrew(name string, provider llm.Provider, tel *telemetry.Telemetry, stages ...*Stage) *Crew {
	return &Crew{
		Name:      name,
		stages:    stages,
		provider:  provider,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[CREW] ", log.LstdFlags),
	}
}

// Stages returns the configured stage names in execution order.
func (c *Crew) Stages() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name
	}
	return names
}

// Kickoff runs all stages for the given topic. It stops at the first failing
// stage and returns its StageError.
func (c *Crew) Kickoff(ctx context.Context, topic string) (string, error) {
	if len(c.stages) == 0 {
		return "", fmt.Errorf("crew %s has no stages", c.Name)
	}

	var previous string
	for i, stage := range c.stages {
		if err := ctx.Err(); err != nil {
			return "", &StageError{Stage: stage.Name, Err: err}
		}
		c.logger.Printf("[%s] stage %d/%d: %s", c.Name, i+1, len(c.stages), stage.Name)
		output, err := stage.Execute(ctx, c.provider, c.telemetry, topic, previous)
		if err != nil {
			c.logger.Printf("[%s] stage %s failed: %v", c.Name, stage.Name, err)
			return "", err
		}
		previous = output
	}
	return previous, nil
}
