package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Runner is the scheduled sync entry point. It must not return an error;
// failures belong in the activity log.
type Runner interface {
	RunScheduled(ctx context.Context)
}

type state struct {
	enabled  bool
	interval time.Duration
}

// Scheduler fires the runner at the configured interval. Reschedule applies
// settings changes live, standing in for deregister-and-re-register.
type Scheduler struct {
	runner     Runner
	runTimeout time.Duration
	updates    chan state
	logger     *slog.Logger
	initial    state
}

func NewScheduler(runner Runner, enabled bool, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		runTimeout: runTimeout,
		updates:    make(chan state, 1),
		logger:     logger,
		initial:    state{enabled: enabled, interval: interval},
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	st := s.initial
	s.logger.Info("scheduler started", "enabled", st.enabled, "interval", st.interval)

	var ticker *time.Ticker
	var tickCh <-chan time.Time

	apply := func(next state) {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tickCh = nil
		}
		if next.enabled {
			ticker = time.NewTicker(next.interval)
			tickCh = ticker.C
		}
		st = next
	}

	apply(st)
	if st.enabled {
		s.runSync(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			if ticker != nil {
				ticker.Stop()
			}
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case next := <-s.updates:
			s.logger.Info("scheduler rescheduled", "enabled", next.enabled, "interval", next.interval)
			apply(next)
		case <-tickCh:
			s.runSync(ctx)
		}
	}
}

// Reschedule replaces the current schedule. Safe to call from any
// goroutine; only the latest pending update is kept.
func (s *Scheduler) Reschedule(enabled bool, interval time.Duration) {
	next := state{enabled: enabled, interval: interval}
	for {
		select {
		case s.updates <- next:
			return
		default:
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

func (s *Scheduler) runSync(ctx context.Context) {
	syncCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	s.runner.RunScheduled(syncCtx)
}
