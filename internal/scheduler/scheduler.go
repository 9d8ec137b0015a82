package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// TickFunc is invoked on every tick with the time it fired.
type TickFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval     time.Duration
	StartupDelay time.Duration
}

// Scheduler runs a job immediately and then on a fixed interval. Ticks never
// overlap: a tick still running when the next one is due delays it.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{opts: opts, logger: logger.With().Str("component", "scheduler").Logger()}
}

// Run blocks, invoking tick until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, tick TickFunc) error {
	if tick == nil {
		return errors.New("scheduler tick function is nil")
	}

	if s.opts.StartupDelay > 0 {
		timer := time.NewTimer(s.opts.StartupDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()

	_, err := cron.Every(s.opts.Interval).StartImmediately().Do(func() {
		if ctx.Err() != nil {
			return
		}
		at := time.Now().UTC()
		s.logger.Debug().Time("tick", at).Msg("executing scheduled tick")
		if err := tick(ctx, at); err != nil {
			s.logger.Error().Err(err).Time("tick", at).Msg("tick execution failed")
		}
	})
	if err != nil {
		return err
	}

	s.logger.Info().Dur("interval", s.opts.Interval).Msg("scheduler started")
	cron.StartAsync()

	<-ctx.Done()
	cron.Stop()
	s.logger.Info().Msg("scheduler stopped")
	return ctx.Err()
}
