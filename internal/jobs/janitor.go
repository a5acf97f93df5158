package jobs

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/DeividiJaeger/crewai-wiki-agent/internal/store"
)

// Janitor sweeps terminal jobs older than the retention window on a cron-like
// schedule.
type Janitor struct {
	store     store.Store
	index     *Index
	schedule  string
	retention time.Duration
	logger    *log.Logger

	stop      chan struct{}
	lastSweep *time.Time
}

func NewJanitor(st store.Store, index *Index, schedule string, retention time.Duration) *Janitor {
	return &Janitor{
		store:     st,
		index:     index,
		schedule:  schedule,
		retention: retention,
		logger:    log.New(log.Writer(), "[JANITOR] ", log.LstdFlags),
		stop:      make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called. A retention of zero
// disables sweeping entirely.
func (j *Janitor) Start() {
	if j.retention <= 0 {
		return
	}
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-j.stop:
				ticker.Stop()
				return
			case <-ticker.C:
				if isDue(j.schedule, j.lastSweep) {
					now := time.Now()
					j.Sweep(context.Background())
					j.lastSweep = &now
				}
			}
		}
	}()
}

func (j *Janitor) Stop() { close(j.stop) }

// Sweep removes finished jobs past retention and drops them from the index.
func (j *Janitor) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-j.retention)
	removed, err := j.store.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Printf("sweep: %v", err)
		return
	}
	for _, id := range removed {
		if j.index != nil {
			_ = j.index.Remove(id)
		}
	}
	if len(removed) > 0 {
		j.logger.Printf("swept %d expired jobs", len(removed))
	}
}

// isDue decides whether the schedule fires given the last sweep time.
// Supports "@daily", "@hourly" and standard 5-field cron expressions.
func isDue(schedule string, last *time.Time) bool {
	now := time.Now()
	switch schedule {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(schedule)
		if err != nil {
			// Unparseable schedules degrade to daily.
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
