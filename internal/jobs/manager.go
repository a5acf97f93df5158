package jobs

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DeividiJaeger/crewai-wiki-agent/config"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/research"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/store"
	"github.com/DeividiJaeger/crewai-wiki-agent/internal/telemetry"
)

// Manager owns the job lifecycle. Submissions return immediately; the
// pipeline runs on a background goroutine behind a worker semaphore.
type Manager struct {
	cfg       config.JobsConfig
	store     store.Store
	runner    Runner
	index     *Index
	telemetry *telemetry.Telemetry
	logger    *log.Logger

	semaphore chan struct{}
	wg        sync.WaitGroup
}

func NewManager(cfg config.JobsConfig, st store.Store, runner Runner, index *Index, tel *telemetry.Telemetry) *Manager {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Manager{
		cfg:       cfg,
		store:     st,
		runner:    runner,
		index:     index,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[JOBS] ", log.LstdFlags),
		semaphore: make(chan struct{}, workers),
	}
}

// Submit validates the topic, registers a pending job and schedules the run.
// It returns before any pipeline work starts.
func (m *Manager) Submit(ctx context.Context, topic string) (Ticket, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return Ticket{}, ErrInvalidInput
	}

	job := store.Job{
		ID:        uuid.NewString(),
		Topic:     topic,
		Status:    store.StatusPending,
		CreatedAt: time.Now(),
	}
	if err := m.store.CreateJob(ctx, job); err != nil {
		return Ticket{}, err
	}
	if m.telemetry != nil {
		m.telemetry.JobSubmitted()
	}

	m.wg.Add(1)
	go m.run(job.ID, topic)

	return Ticket{
		ID:         job.ID,
		Status:     store.StatusPending,
		Message:    "Research started. Check back for the result.",
		ETASeconds: m.etaSeconds(),
	}, nil
}

// Status reports a job's current state. While the job is in flight the report
// carries the remaining time estimate; once the estimate is spent it is
// omitted rather than going negative.
func (m *Manager) Status(ctx context.Context, id string) (StatusReport, error) {
	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return StatusReport{}, err
	}

	report := StatusReport{
		ID:     job.ID,
		Topic:  job.Topic,
		Status: job.Status,
		Error:  job.Error,
	}
	if job.Status == store.StatusRunning && job.StartedAt != nil {
		remaining := m.etaSeconds() - int(time.Since(*job.StartedAt).Seconds())
		if remaining > 0 {
			report.ETASeconds = &remaining
		}
	}
	return report, nil
}

// Result returns the stored result of a completed job. Any other state,
// including failed, is ErrNotReady.
func (m *Manager) Result(ctx context.Context, id string) (research.Result, error) {
	job, err := m.store.GetJob(ctx, id)
	if err != nil {
		return research.Result{}, err
	}
	if job.Status != store.StatusCompleted {
		return research.Result{}, ErrNotReady
	}
	if job.Result == nil {
		// Completed without a result should be unreachable; treat it as gone.
		return research.Result{}, store.ErrNotFound
	}
	return *job.Result, nil
}

// Delete erases the job and its result. A second delete of the same id
// reports store.ErrNotFound.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.store.DeleteJob(ctx, id); err != nil {
		return err
	}
	if m.index != nil {
		if err := m.index.Remove(id); err != nil {
			m.logger.Printf("unindex %s: %v", id, err)
		}
	}
	return nil
}

// Counts exposes store counts for the health endpoint.
func (m *Manager) Counts(ctx context.Context) (store.Counts, error) {
	return m.store.GetCounts(ctx)
}

// Search queries the result index.
func (m *Manager) Search(q string, limit int) ([]SearchHit, error) {
	if m.index == nil {
		return nil, nil
	}
	return m.index.Search(q, limit)
}

// Wait blocks until all in-flight runs finish. Used during shutdown and in
// tests.
func (m *Manager) Wait() { m.wg.Wait() }

func (m *Manager) etaSeconds() int {
	if m.cfg.ETASeconds > 0 {
		return m.cfg.ETASeconds
	}
	return 60
}

// storeWriteTimeout bounds the lifecycle writes that run on their own
// context, detached from the run deadline.
const storeWriteTimeout = 10 * time.Second

func writeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeWriteTimeout)
}

func (m *Manager) run(id, topic string) {
	defer m.wg.Done()

	m.semaphore <- struct{}{}
	defer func() { <-m.semaphore }()

	// The run timeout applies to the pipeline only. Store writes get their
	// own contexts so an expired deadline cannot strand the job in running.
	runCtx := context.Background()
	cancel := func() {}
	if m.cfg.RunTimeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, m.cfg.RunTimeout)
	}
	defer cancel()

	started := time.Now()
	startCtx, cancelStart := writeContext()
	err := m.store.SetRunning(startCtx, id, started)
	cancelStart()
	if err != nil {
		// Deleted between submit and dispatch; nothing left to do.
		m.logger.Printf("job %s vanished before start: %v", id, err)
		return
	}
	if m.telemetry != nil {
		m.telemetry.RunStarted()
	}
	m.logger.Printf("job %s started: %s", id, topic)

	raw, err := m.runner.Kickoff(runCtx, topic)
	if err != nil {
		m.finishFailed(id, started, err)
		return
	}

	result := research.Format(raw)
	doneCtx, cancelDone := writeContext()
	err = m.store.Complete(doneCtx, id, result, time.Now())
	cancelDone()
	if err != nil {
		m.logger.Printf("job %s could not be completed: %v", id, err)
		m.recordRun(id, topic, started, false, err.Error())
		return
	}
	if m.index != nil {
		if err := m.index.Add(id, result); err != nil {
			m.logger.Printf("index %s: %v", id, err)
		}
	}
	m.logger.Printf("job %s completed in %v", id, time.Since(started))
	m.recordRun(id, topic, started, true, "")
}

func (m *Manager) finishFailed(id string, started time.Time, runErr error) {
	ctx, cancel := writeContext()
	defer cancel()
	if err := m.store.Fail(ctx, id, runErr.Error(), time.Now()); err != nil {
		m.logger.Printf("job %s could not be marked failed: %v", id, err)
	}
	m.logger.Printf("job %s failed: %v", id, runErr)
	m.recordRun(id, "", started, false, runErr.Error())
}

func (m *Manager) recordRun(id, topic string, started time.Time, success bool, errMsg string) {
	if m.telemetry == nil {
		return
	}
	m.telemetry.RecordRun(telemetry.RunEvent{
		JobID:    id,
		Topic:    topic,
		Duration: time.Since(started),
		Success:  success,
		Error:    errMsg,
	})
}
