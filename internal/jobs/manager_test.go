package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DeividiJaeger/crewai-wiki-agent/config"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/research"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/store"
)

// stubRunner lets tests control when the pipeline finishes and what it
// produces.
type stubRunner struct {
	mu      sync.Mutex
	started chan string
	release chan struct{}
	out     string
	err     error
	topics  []string
}

func (r *stubRunner) Kickoff(ctx context.Context, topic string) (string, error) {
	r.mu.Lock()
	r.topics = append(r.topics, topic)
	r.mu.Unlock()
	if r.started != nil {
		r.started <- topic
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return r.out, r.err
}

func newTestManager(runner Runner) (*Manager, store.Store) {
	st := store.NewMemoryStore()
	cfg := config.JobsConfig{Workers: 2, ETASeconds: 60, RunTimeout: 5 * time.Second}
	return NewManager(cfg, st, runner, nil, nil), st
}

func TestSubmitRejectsBlankTopic(t *testing.T) {
	m, _ := newTestManager(&stubRunner{})
	for _, topic := range []string{"", "   ", "\t\n"} {
		if _, err := m.Submit(context.Background(), topic); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("topic %q: expected ErrInvalidInput, got %v", topic, err)
		}
	}
	m.Wait()
}

func TestSubmitReturnsBeforeRunFinishes(t *testing.T) {
	runner := &stubRunner{
		started: make(chan string, 1),
		release: make(chan struct{}),
		out:     "Tema: Go\nPonto um\nResumo: pronto",
	}
	m, _ := newTestManager(runner)

	ticket, err := m.Submit(context.Background(), "Go")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ticket.ID == "" || ticket.ETASeconds != 60 {
		t.Errorf("unexpected ticket: %+v", ticket)
	}

	<-runner.started
	report, err := m.Status(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.Status != store.StatusRunning {
		t.Errorf("expected running, got %s", report.Status)
	}
	if report.ETASeconds == nil || *report.ETASeconds <= 0 || *report.ETASeconds > 60 {
		t.Errorf("expected remaining estimate, got %v", report.ETASeconds)
	}
	if _, err := m.Result(context.Background(), ticket.ID); !errors.Is(err, ErrNotReady) {
		t.Errorf("result while running should be ErrNotReady, got %v", err)
	}

	close(runner.release)
	m.Wait()

	report, _ = m.Status(context.Background(), ticket.ID)
	if report.Status != store.StatusCompleted {
		t.Errorf("expected completed, got %s", report.Status)
	}
	if report.ETASeconds != nil {
		t.Error("terminal jobs should not carry an estimate")
	}

	result, err := m.Result(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.Topic != "Go" || result.Summary != "pronto" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestFailedRunKeepsResultUnavailable(t *testing.T) {
	runner := &stubRunner{err: errors.New("stage web_researcher: service down")}
	m, _ := newTestManager(runner)

	ticket, err := m.Submit(context.Background(), "Go")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	m.Wait()

	report, err := m.Status(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.Status != store.StatusFailed {
		t.Errorf("expected failed, got %s", report.Status)
	}
	if report.Error == "" {
		t.Error("failed status should surface the error")
	}

	if _, err := m.Result(context.Background(), ticket.ID); !errors.Is(err, ErrNotReady) {
		t.Errorf("failed job result should be ErrNotReady, got %v", err)
	}
}

func TestStatusOmitsExhaustedEstimate(t *testing.T) {
	m, st := newTestManager(&stubRunner{})
	startedLongAgo := time.Now().Add(-2 * time.Minute)
	old := store.Job{
		ID:        "stalled",
		Topic:     "x",
		Status:    store.StatusRunning,
		CreatedAt: startedLongAgo,
		StartedAt: &startedLongAgo,
	}
	if err := st.CreateJob(context.Background(), old); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	report, err := m.Status(context.Background(), "stalled")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.ETASeconds != nil {
		t.Errorf("estimate should be omitted when exceeded, got %d", *report.ETASeconds)
	}
	m.Wait()
}

func TestDeleteIsErasure(t *testing.T) {
	runner := &stubRunner{out: "Tema: Go\nPonto\nResumo: fim"}
	m, _ := newTestManager(runner)

	ticket, _ := m.Submit(context.Background(), "Go")
	m.Wait()

	if err := m.Delete(context.Background(), ticket.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := m.Delete(context.Background(), ticket.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete should be ErrNotFound, got %v", err)
	}
	if _, err := m.Status(context.Background(), ticket.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("status after delete should be ErrNotFound, got %v", err)
	}
	if _, err := m.Result(context.Background(), ticket.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("result after delete should be ErrNotFound, got %v", err)
	}
}

func TestUnknownIDs(t *testing.T) {
	m, _ := newTestManager(&stubRunner{})
	if _, err := m.Status(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Status: %v", err)
	}
	if _, err := m.Result(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Result: %v", err)
	}
	if err := m.Delete(context.Background(), "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete: %v", err)
	}
	m.Wait()
}

// deadlineStore rejects any call whose context is already done, the way the
// SQL and redis drivers do.
type deadlineStore struct {
	store.Store
}

func (s deadlineStore) SetRunning(ctx context.Context, id string, startedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.SetRunning(ctx, id, startedAt)
}

func (s deadlineStore) Complete(ctx context.Context, id string, result research.Result, finishedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Complete(ctx, id, result, finishedAt)
}

func (s deadlineStore) Fail(ctx context.Context, id string, jobErr string, finishedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.Fail(ctx, id, jobErr, finishedAt)
}

func TestTimedOutRunStillEndsFailed(t *testing.T) {
	// The runner blocks past the run timeout; the failure must still land in
	// the store even though the run deadline has expired.
	runner := &stubRunner{release: make(chan struct{})}
	st := deadlineStore{store.NewMemoryStore()}
	cfg := config.JobsConfig{Workers: 1, ETASeconds: 60, RunTimeout: 30 * time.Millisecond}
	m := NewManager(cfg, st, runner, nil, nil)

	ticket, err := m.Submit(context.Background(), "Go")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	m.Wait()

	report, err := m.Status(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.Status != store.StatusFailed {
		t.Fatalf("timed-out run must end failed, got %s", report.Status)
	}
	if report.Error == "" {
		t.Error("failed status should surface the timeout error")
	}
}

// echoRunner produces output derived from the topic, so cross-job result
// corruption would be visible.
type echoRunner struct{}

func (echoRunner) Kickoff(ctx context.Context, topic string) (string, error) {
	return fmt.Sprintf("Tema: %s\nPonto sobre %s\nResumo: resumo de %s", topic, topic, topic), nil
}

func TestConcurrentSubmissionsRunIndependently(t *testing.T) {
	m, _ := newTestManager(echoRunner{})

	topics := make(map[string]string)
	for i := 0; i < 8; i++ {
		topic := fmt.Sprintf("topic-%d", i)
		ticket, err := m.Submit(context.Background(), topic)
		if err != nil {
			t.Fatalf("Submit %s: %v", topic, err)
		}
		topics[ticket.ID] = topic
	}
	m.Wait()

	for id, topic := range topics {
		result, err := m.Result(context.Background(), id)
		if err != nil {
			t.Fatalf("Result %s: %v", id, err)
		}
		if result.Topic != topic {
			t.Errorf("job %s: result topic %q does not match submitted topic %q", id, result.Topic, topic)
		}
		if result.Summary != "resumo de "+topic {
			t.Errorf("job %s: summary %q belongs to another run", id, result.Summary)
		}
	}
}
