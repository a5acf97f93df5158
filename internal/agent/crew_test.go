package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/DeividiJaeger/crewai-wiki-agent/config"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/llm"
)

type fakeProvider struct {
	responses map[string]string // keyed by model
	err       error
	calls     []fakeCall
}

type fakeCall struct {
	system string
	prompt string
	model  string
}

func (f *fakeProvider) Generate(ctx context.Context, system, prompt, model string) (string, error) {
	out, _, _, err := f.GenerateWithTokens(ctx, system, prompt, model)
	return out, err
}

func (f *fakeProvider) GenerateWithTokens(ctx context.Context, system, prompt, model string) (string, int64, int64, error) {
	f.calls = append(f.calls, fakeCall{system: system, prompt: prompt, model: model})
	if f.err != nil {
		return "", 0, 0, f.err
	}
	if out, ok := f.responses[model]; ok {
		return out, 10, 20, nil
	}
	return "default output", 10, 20, nil
}

func (f *fakeProvider) GetAvailableModels() []string { return nil }
func (f *fakeProvider) GetModelInfo(model string) (llm.ModelInfo, error) {
	return llm.ModelInfo{}, fmt.Errorf("not found")
}
func (f *fakeProvider) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return 0
}

type fakeTool struct {
	name    string
	content string
	err     error
}

func (f *fakeTool) Name() string { return f.name }
func (f *fakeTool) Gather(ctx context.Context, topic string) (string, error) {
	return f.content, f.err
}

func TestCrewKickoffSequential(t *testing.T) {
	provider := &fakeProvider{responses: map[string]string{
		"research-model":  "fact one\nfact two",
		"synthesis-model": "Tema: Go\nfact one\nResumo: done",
	}}

	research := &Stage{
		Name:  "research",
		Role:  Role{Name: "Researcher"},
		Task:  Task{Description: "Collect facts."},
		Tools: []Tool{&fakeTool{name: "encyclopedia", content: "Go is a language."}},
		Model: "research-model",
	}
	write := &Stage{
		Name:  "write",
		Role:  Role{Name: "Writer"},
		Task:  Task{Description: "Write the report."},
		Model: "synthesis-model",
	}

	crew := NewCrew("test", provider, nil, research, write)
	out, err := crew.Kickoff(context.Background(), "Go")
	if err != nil {
		t.Fatalf("Kickoff failed: %v", err)
	}
	if out != "Tema: Go\nfact one\nResumo: done" {
		t.Errorf("unexpected final output: %q", out)
	}

	if len(provider.calls) != 2 {
		t.Fatalf("expected 2 completion calls, got %d", len(provider.calls))
	}
	if !strings.Contains(provider.calls[0].prompt, "Go is a language.") {
		t.Errorf("research prompt missing tool context: %q", provider.calls[0].prompt)
	}
	if !strings.Contains(provider.calls[1].prompt, "fact one\nfact two") {
		t.Errorf("writer prompt missing previous stage output: %q", provider.calls[1].prompt)
	}
	if !strings.Contains(provider.calls[0].system, "Researcher") {
		t.Errorf("system message missing role: %q", provider.calls[0].system)
	}
}

func TestCrewKickoffStopsAtFailingStage(t *testing.T) {
	provider := &fakeProvider{err: errors.New("service unavailable")}
	crew := NewCrew("test", provider, nil,
		&Stage{Name: "first", Model: "m"},
		&Stage{Name: "second", Model: "m"},
	)

	_, err := crew.Kickoff(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error")
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError, got %T", err)
	}
	if stageErr.Stage != "first" {
		t.Errorf("expected failure in first stage, got %s", stageErr.Stage)
	}
	if len(provider.calls) != 1 {
		t.Errorf("second stage should not run after a failure, got %d calls", len(provider.calls))
	}
}

func TestStageEmptyCompletionIsError(t *testing.T) {
	provider := &fakeProvider{responses: map[string]string{"m": "   "}}
	stage := &Stage{Name: "only", Model: "m"}

	_, err := stage.Execute(context.Background(), provider, nil, "topic", "")
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected StageError for blank completion, got %v", err)
	}
}

func TestStageToolErrorBecomesContextNote(t *testing.T) {
	provider := &fakeProvider{}
	stage := &Stage{
		Name:  "research",
		Tools: []Tool{&fakeTool{name: "search", err: errors.New("rate limited")}},
		Model: "m",
	}

	if _, err := stage.Execute(context.Background(), provider, nil, "topic", ""); err != nil {
		t.Fatalf("tool error should not fail the stage: %v", err)
	}
	if !strings.Contains(provider.calls[0].prompt, "[search] unavailable") {
		t.Errorf("prompt should note the unavailable tool: %q", provider.calls[0].prompt)
	}
}

func TestCrewKickoffNoStages(t *testing.T) {
	crew := NewCrew("empty", &fakeProvider{}, nil)
	if _, err := crew.Kickoff(context.Background(), "x"); err == nil {
		t.Fatal("expected error for crew without stages")
	}
}

func TestBuildCrew(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Routing.Fallback = "fallback-model"
	cfg.Tools.WebSearch.Provider = "duckduckgo"
	provider := &fakeProvider{}

	crew, err := BuildCrew("", cfg, provider, nil)
	if err != nil {
		t.Fatalf("default pipeline: %v", err)
	}
	if got := crew.Stages(); len(got) != 2 || got[0] != "wikipedia_researcher" {
		t.Errorf("unexpected default stages: %v", got)
	}

	crew, err = BuildCrew(PipelineWebSearch, cfg, provider, nil)
	if err != nil {
		t.Fatalf("websearch pipeline: %v", err)
	}
	if got := crew.Stages(); len(got) != 2 || got[1] != "synthesizer" {
		t.Errorf("unexpected websearch stages: %v", got)
	}

	if _, err := BuildCrew("nonsense", cfg, provider, nil); err == nil {
		t.Error("expected error for unknown pipeline")
	}
}
