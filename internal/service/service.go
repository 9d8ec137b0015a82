package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"windwatch/internal/alerting"
	"windwatch/internal/fetcher"
	"windwatch/internal/metrics"
	"windwatch/internal/scheduler"
	"windwatch/internal/units"
	"windwatch/internal/window"
)

// Options carry the monitoring parameters.
type Options struct {
	Thresholds    units.Thresholds
	Cooldown      time.Duration
	FetchTimeout  time.Duration
	NotifyTimeout time.Duration
	SeriesLimit   int
	WindowSpan    time.Duration
	// Location interprets upstream timestamps that carry no UTC offset.
	Location *time.Location
	Now      func() time.Time
}

// Service owns the fetch cache, the sample window and the alert gate, and
// drives them from the poll loop and the query path.
type Service struct {
	scheduler *scheduler.Scheduler
	source    fetcher.StationProvider
	window    *window.Window
	gate      *alerting.Gate
	notifier  alerting.Notifier
	metrics   *metrics.Recorder
	logger    zerolog.Logger
	opts      Options
}

// New constructs the monitoring service. source should already be cached;
// sched may be nil when the caller never calls Run.
func New(opts Options, sched *scheduler.Scheduler, source fetcher.StationProvider, notifier alerting.Notifier, recorder *metrics.Recorder, logger zerolog.Logger) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SeriesLimit <= 0 {
		opts.SeriesLimit = window.DefaultSeriesLimit
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	if notifier == nil {
		notifier = alerting.NopNotifier{Logger: logger}
	}

	return &Service{
		scheduler: sched,
		source:    source,
		window:    window.New(opts.WindowSpan),
		gate:      alerting.NewGate(opts.Thresholds.StormKt, opts.Cooldown),
		notifier:  notifier,
		metrics:   recorder,
		logger:    logger.With().Str("component", "service").Logger(),
		opts:      opts,
	}
}

// Run polls once immediately and then on every scheduler tick.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, func(ctx context.Context, _ time.Time) error {
		return s.PollOnce(ctx)
	})
}

// PollOnce fetches the current reading, records it and evaluates the alert.
// A failed fetch leaves the window and alert state untouched.
func (s *Service) PollOnce(ctx context.Context) error {
	logger := s.logger.With().Str("cycle_id", uuid.NewString()).Logger()

	record, err := s.fetch(ctx)
	if err != nil {
		s.metrics.Poll(metrics.ResultError)
		logger.Error().Err(err).Msg("poll skipped: station fetch failed")
		return fmt.Errorf("fetch station: %w", err)
	}
	s.metrics.Poll(metrics.ResultOK)

	now := s.opts.Now()
	windKt := units.ToKnots(record.WindSpeedMS())
	sample, ok := s.ingest(record, windKt, now)
	if windKt == nil {
		logger.Debug().Msg("station reported no wind speed")
		return nil
	}
	if !ok {
		logger.Debug().Str("observed_at", record.ObservedAt()).Msg("malformed sample dropped")
		return nil
	}

	verdict := s.gate.Admit(sample, now)
	if verdict.Decision != alerting.Fire {
		s.metrics.Suppressed(verdict.Reason)
		logger.Debug().Str("reason", verdict.Reason).Float64("wind_kt", sample.SpeedKt).Msg("alert suppressed")
		return nil
	}

	note := alerting.Notification{
		ID:           uuid.NewString(),
		Label:        units.Classify(windKt, s.opts.Thresholds),
		StationName:  record.ReportedName(),
		WindKt:       sample.SpeedKt,
		DirectionDeg: record.WindDirection(),
		ObservedAt:   sample.SourceTimestamp,
	}

	notifyCtx, cancel := context.WithTimeout(ctx, s.opts.NotifyTimeout)
	defer cancel()

	// the gate has already recorded this alert; a failed send is not retried
	if err := s.notifier.Notify(notifyCtx, note); err != nil {
		s.metrics.Alert(metrics.ResultFailed)
		logger.Error().Err(err).Str("alert_id", note.ID).Msg("failed to dispatch alert")
		return nil
	}

	s.metrics.Alert(metrics.ResultSent)
	logger.Info().Str("alert_id", note.ID).
		Str("label", string(note.Label)).
		Float64("wind_kt", note.WindKt).
		Msg("alert dispatched")
	return nil
}

// QuerySnapshot fetches the current reading, records it into the window and
// returns the composed read model. It never evaluates alerts.
func (s *Service) QuerySnapshot(ctx context.Context) (Snapshot, error) {
	record, err := s.fetch(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	windKt := units.ToKnots(record.WindSpeedMS())
	s.ingest(record, windKt, s.opts.Now())

	// stats and series come from one copy so they agree under concurrent polls
	samples := s.window.All()
	st := window.Compute(samples)
	return Snapshot{
		StationRecord: record,
		Derived: Derived{
			CurrentWindKt: windKt,
			Label:         units.Classify(windKt, s.opts.Thresholds),
			Thresholds:    s.opts.Thresholds,
		},
		Stats: StatsView{
			MaxWindKt:       st.MaxKt,
			MaxWindAt:       st.MaxAt,
			AvgWindKt:       st.AvgKt,
			SamplesInWindow: st.SampleCount,
		},
		Series: SeriesView{
			WindKt: window.Points(samples, s.opts.SeriesLimit),
		},
	}, nil
}

// WindowSeries returns the retained series without contacting upstream.
func (s *Service) WindowSeries() []window.Point {
	return s.window.Snapshot(s.opts.SeriesLimit)
}

// RecentSamples returns up to the series limit of the most recent samples.
func (s *Service) RecentSamples() []window.Sample {
	all := s.window.All()
	if len(all) > s.opts.SeriesLimit {
		all = all[len(all)-s.opts.SeriesLimit:]
	}
	return all
}

// Thresholds returns the configured classification thresholds.
func (s *Service) Thresholds() units.Thresholds {
	return s.opts.Thresholds
}

// AlertState returns a copy of the alert gate state.
func (s *Service) AlertState() alerting.State {
	return s.gate.State()
}

func (s *Service) fetch(ctx context.Context) (fetcher.StationRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	start := time.Now()
	record, err := s.source.FetchStation(ctx)
	if err != nil {
		s.metrics.Lookup(metrics.ResultError, time.Since(start))
		return fetcher.StationRecord{}, err
	}
	s.metrics.Lookup(metrics.ResultOK, time.Since(start))
	return record, nil
}

// ingest pushes the reading into the window when it forms a valid sample.
func (s *Service) ingest(record fetcher.StationRecord, windKt *float64, now time.Time) (window.Sample, bool) {
	sample, ok := window.NewSample(record.ObservedAt(), windKt, s.opts.Location)
	if !ok {
		return window.Sample{}, false
	}
	s.window.Push(sample, now)
	s.metrics.Observe(sample.SpeedKt, s.window.Len())
	return sample, true
}
