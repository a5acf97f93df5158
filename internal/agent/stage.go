package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/DeividiJaeger/crewai-wiki-agent/internal/llm"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/telemetry"
	"github.com/DeividiJaeger/crewai-wiki-agent/tools/text_processor"
)

// maxContextSegments bounds how much gathered tool output reaches the prompt.
const maxContextSegments = 40

// Stage is one step of a crew: a role, a task, an optional toolset and a
// routing key selecting which configured model serves it. Stages are
// stateless; all run state flows through Execute arguments.
type Stage struct {
	Name  string
	Role  Role
	Task  Task
	Tools []Tool
	Model string
}

// Execute runs the stage: gather tool context, build the prompt, call the
// completion service. The previous stage's output is passed along so later
// stages can build on earlier ones.
func (s *Stage) Execute(ctx context.Context, provider llm.Provider, tel *telemetry.Telemetry, topic, previous string) (string, error) {
	started := time.Now()

	contextBlock := s.gatherContext(ctx, topic)

	prompt := s.buildPrompt(topic, contextBlock, previous)
	system := s.systemMessage()

	output, inTok, outTok, err := provider.GenerateWithTokens(ctx, system, prompt, s.Model)
	cost := provider.CalculateCost(inTok, outTok, s.Model)

	if tel != nil {
		tel.RecordStage(telemetry.StageEvent{
			Stage:    s.Name,
			Duration: time.Since(started),
			Success:  err == nil,
			Cost:     cost,
			Tokens:   inTok + outTok,
		})
	}
	if err != nil {
		return "", &StageError{Stage: s.Name, Err: err}
	}
	if strings.TrimSpace(output) == "" {
		return "", &StageError{Stage: s.Name, Err: fmt.Errorf("empty completion")}
	}
	return output, nil
}

// gatherContext runs every tool and concatenates what came back. A tool error
// becomes a note in the context so the model knows that source is missing.
func (s *Stage) gatherContext(ctx context.Context, topic string) string {
	if len(s.Tools) == 0 {
		return ""
	}
	var b strings.Builder
	for _, tool := range s.Tools {
		content, err := tool.Gather(ctx, topic)
		if err != nil {
			b.WriteString(fmt.Sprintf("[%s] unavailable: %v\n\n", tool.Name(), err))
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("[%s]\n%s\n\n", tool.Name(), content))
	}
	return text_processor.Reduce(b.String(), maxContextSegments)
}

func (s *Stage) systemMessage() string {
	return fmt.Sprintf("You are %s. %s\nBackground: %s", s.Role.Name, s.Role.Goal, s.Role.Backstory)
}

func (s *Stage) buildPrompt(topic, contextBlock, previous string) string {
	var b strings.Builder
	b.WriteString(s.Task.Description)
	b.WriteString("\n\nTopic: ")
	b.WriteString(topic)
	if contextBlock != "" {
		b.WriteString("\n\nReference material:\n")
		b.WriteString(contextBlock)
	}
	if previous != "" {
		b.WriteString("\n\nOutput of the previous step:\n")
		b.WriteString(previous)
	}
	if s.Task.ExpectedOutput != "" {
		b.WriteString("\n\nExpected output: ")
		b.WriteString(s.Task.ExpectedOutput)
	}
	return b.String()
}
