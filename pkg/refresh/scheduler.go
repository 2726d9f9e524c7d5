package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/diningmenu/pkg/config"
	"github.com/japaniel/diningmenu/pkg/logger"
)

// Scheduler repeats refresh runs according to a config.ScheduleConfig.
type Scheduler struct {
	runner *Runner
	cfg    config.ScheduleConfig
	loc    *time.Location
	at     clockTime

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
	log   *zap.SugaredLogger
}

type clockTime struct{ hour, minute int }

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithClock replaces time.Now and time.After.
func WithClock(now func() time.Time, after func(time.Duration) <-chan time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.now = now
		s.after = after
	}
}

// WithSchedulerLogger sets the logger.
func WithSchedulerLogger(log *zap.SugaredLogger) SchedulerOption {
	return func(s *Scheduler) { s.log = log }
}

// NewScheduler validates the schedule and returns a Scheduler for it.
func NewScheduler(runner *Runner, cfg config.ScheduleConfig, opts ...SchedulerOption) (*Scheduler, error) {
	s := &Scheduler{
		runner: runner,
		cfg:    cfg,
		loc:    cfg.Location(),
		now:    time.Now,
		after:  time.After,
		log:    logger.GetLogger("scheduler"),
	}
	switch cfg.Mode {
	case config.ModeDaily:
		at, err := parseHHMM(cfg.TimeHHMM)
		if err != nil {
			return nil, err
		}
		s.at = at
	case config.ModeInterval:
		if cfg.Interval <= 0 {
			return nil, fmt.Errorf("interval schedule needs a positive interval, got %s", cfg.Interval)
		}
	case config.ModeOnce:
	default:
		return nil, fmt.Errorf("unknown schedule mode %q", cfg.Mode)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func parseHHMM(v string) (clockTime, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return clockTime{}, fmt.Errorf("schedule time %q: want HH:MM", v)
	}
	return clockTime{t.Hour(), t.Minute()}, nil
}

// Next returns the first scheduled run strictly after now.
func (s *Scheduler) Next(now time.Time) time.Time {
	if s.cfg.Mode == config.ModeInterval {
		return now.Add(s.cfg.Interval)
	}
	local := now.In(s.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.at.hour, s.at.minute, 0, 0, s.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.at.hour, s.at.minute, 0, 0, s.loc)
	}
	return next
}

// Start runs refreshes until ctx ends. In once mode it performs a single run
// and returns its error. Otherwise it returns nil when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.cfg.Mode == config.ModeOnce {
		_, err := s.runner.Run(ctx, s.cfg.Mode)
		return err
	}

	if s.cfg.RunAtStart {
		s.run(ctx)
	}
	for {
		next := s.Next(s.now())
		wait := next.Sub(s.now())
		s.log.Infow("next refresh scheduled", "mode", s.cfg.Mode, "at", next, "in", wait.Round(time.Second))

		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-s.after(wait):
		}
		s.run(ctx)
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if _, err := s.runner.Run(ctx, s.cfg.Mode); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warnw("refresh run incomplete", "error", err)
	}
}
