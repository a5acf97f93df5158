// Package telemetry tracks pipeline run metrics and completion-service cost.
package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/DeividiJaeger/crewai-wiki-agent/config"
)

var (
	jobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "research_jobs_submitted_total",
		Help: "Number of research jobs accepted.",
	})
	jobsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "research_jobs_completed_total",
		Help: "Number of research jobs that reached Completed.",
	})
	jobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "research_jobs_failed_total",
		Help: "Number of research jobs that reached Failed.",
	})
	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "research_jobs_in_flight",
		Help: "Research jobs currently running.",
	})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "research_run_duration_seconds",
		Help:    "Wall-clock duration of pipeline runs.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "research_stage_duration_seconds",
		Help:    "Wall-clock duration of individual pipeline stages.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"stage"})
)

// RunEvent describes one finished pipeline run.
type RunEvent struct {
	JobID    string
	Topic    string
	Duration time.Duration
	Success  bool
	Error    string
	Cost     float64
	Tokens   int64
}

// StageEvent describes one finished pipeline stage.
type StageEvent struct {
	Stage    string
	Duration time.Duration
	Success  bool
	Cost     float64
	Tokens   int64
}

// Telemetry aggregates run statistics and exposes them through prometheus
// collectors and the logger.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	mu          sync.Mutex
	totalRuns   int64
	failedRuns  int64
	totalCost   float64
	totalTokens int64
}

func New(cfg config.TelemetryConfig) *Telemetry {
	return &Telemetry{
		config: cfg,
		logger: log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
	}
}

func (t *Telemetry) JobSubmitted() {
	if !t.config.Enabled {
		return
	}
	jobsSubmitted.Inc()
}

func (t *Telemetry) RunStarted() {
	if !t.config.Enabled {
		return
	}
	jobsInFlight.Inc()
}

// RecordRun records a finished run and updates the aggregate counters.
func (t *Telemetry) RecordRun(event RunEvent) {
	if !t.config.Enabled {
		return
	}
	jobsInFlight.Dec()
	runDuration.Observe(event.Duration.Seconds())
	if event.Success {
		jobsCompleted.Inc()
	} else {
		jobsFailed.Inc()
	}

	t.mu.Lock()
	t.totalRuns++
	if !event.Success {
		t.failedRuns++
	}
	if t.config.CostTracking {
		t.totalCost += event.Cost
		t.totalTokens += event.Tokens
	}
	t.mu.Unlock()

	t.logger.Printf("Run: job=%s success=%t duration=%v cost=$%.4f tokens=%d",
		event.JobID, event.Success, event.Duration, event.Cost, event.Tokens)
}

// RecordStage records a finished pipeline stage.
func (t *Telemetry) RecordStage(event StageEvent) {
	if !t.config.Enabled {
		return
	}
	stageDuration.WithLabelValues(event.Stage).Observe(event.Duration.Seconds())

	if t.config.CostTracking {
		t.mu.Lock()
		t.totalCost += event.Cost
		t.totalTokens += event.Tokens
		t.mu.Unlock()
	}
}

// Summary is a point-in-time aggregate snapshot.
type Summary struct {
	TotalRuns   int64
	FailedRuns  int64
	TotalCost   float64
	TotalTokens int64
}

func (t *Telemetry) GetSummary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{
		TotalRuns:   t.totalRuns,
		FailedRuns:  t.failedRuns,
		TotalCost:   t.totalCost,
		TotalTokens: t.totalTokens,
	}
}

// Shutdown logs a final report.
func (t *Telemetry) Shutdown() {
	s := t.GetSummary()
	t.logger.Printf("Final report: runs=%d failed=%d cost=$%.4f tokens=%d",
		s.TotalRuns, s.FailedRuns, s.TotalCost, s.TotalTokens)
}
