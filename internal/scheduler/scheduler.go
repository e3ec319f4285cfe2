package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tabvault/tabvault/internal/infrastructure/logging"
	"github.com/tabvault/tabvault/internal/store"
)

// Func is a scheduled job body.
type Func func(ctx context.Context) error

// pollInterval bounds how late an alarm can fire past its due time.
const pollInterval = time.Second

type job struct {
	period time.Duration
	fn     Func
}

// Scheduler polls the durable alarm table and runs due jobs sequentially.
type Scheduler struct {
	store *store.Store
	log   *logging.Logger
	jobs  map[string]job
}

// New creates a scheduler backed by the given store.
func New(st *store.Store, log *logging.Logger) *Scheduler {
	return &Scheduler{
		store: st,
		log:   log,
		jobs:  make(map[string]job),
	}
}

// Register binds a named job to a period and upserts its alarm row. An
// existing row keeps its next fire time, so a restart does not reset the
// schedule.
func (s *Scheduler) Register(name string, period time.Duration, fn Func) error {
	if period <= 0 {
		return fmt.Errorf("scheduler: job %q has non-positive period %v", name, period)
	}
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("scheduler: job %q already registered", name)
	}
	if err := s.store.RegisterAlarm(name, period, time.Now()); err != nil {
		return err
	}
	s.jobs[name] = job{period: period, fn: fn}
	return nil
}

// Run polls for due alarms until the context is cancelled. Jobs run one at a
// time; a failing job is logged and its alarm still advances, so one bad run
// cannot starve the rest of the schedule.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	// Fire anything that came due while the process was down.
	if err := s.runDue(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.runDue(ctx); err != nil {
				return err
			}
		}
	}
}

// RunDue fires every due alarm once. Exposed for callers that drive the
// schedule themselves instead of through Run.
func (s *Scheduler) RunDue(ctx context.Context) error {
	return s.runDue(ctx)
}

func (s *Scheduler) runDue(ctx context.Context) error {
	now := time.Now()
	due, err := s.store.DueAlarms(now)
	if err != nil {
		return err
	}

	for _, alarm := range due {
		j, ok := s.jobs[alarm.Name]
		if !ok {
			// Row left behind by a removed job; skip it without advancing so
			// it surfaces in the table rather than silently rescheduling.
			s.log.Warn("Due alarm has no registered job", zap.String("alarm", alarm.Name))
			continue
		}

		// Advance before running: a job that crashes the process must not
		// wedge its alarm in a permanently-due state.
		if err := s.store.AdvanceAlarm(alarm.Name, now.Add(j.period)); err != nil {
			return err
		}

		if err := j.fn(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error("Scheduled job failed",
				zap.String("job", alarm.Name),
				zap.Error(err),
			)
		}
	}
	return nil
}
