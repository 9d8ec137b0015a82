package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"windwatch/internal/alerting"
	"windwatch/internal/api"
	"windwatch/internal/config"
	"windwatch/internal/fetcher"
	"windwatch/internal/metrics"
	"windwatch/internal/scheduler"
	"windwatch/internal/service"
	"windwatch/internal/units"
	"windwatch/internal/version"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives command output; defaults to stdout.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newSource() fetcher.StationProvider {
	st := a.Config.Station
	station := fetcher.NewStation(fetcher.StationOptions{
		SourceURL:   st.SourceURL,
		StationName: st.Name,
		UserAgent:   st.UserAgent,
		Timeout:     st.RequestTimeout,
		MaxFailures: st.Breaker.MaxFailures,
		OpenTimeout: st.Breaker.OpenTimeout,
	}, a.Logger)

	return fetcher.NewCache(station, fetcher.CacheOptions{
		TTL:          a.Config.Cache.TTL,
		FetchTimeout: st.RequestTimeout,
	}, a.Logger)
}

// newNotifier returns nil when delivery is disabled or unconfigured.
func (a *App) newNotifier() alerting.Notifier {
	cfg := a.Config.Alerting
	if cfg.Enabled && cfg.Telegram.Configured() {
		return alerting.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.NotifyTimeout, a.Logger)
	}
	return nil
}

func (a *App) thresholds() units.Thresholds {
	return units.Thresholds{
		StormKt:       a.Config.Alerting.StormKt,
		StrongStormKt: a.Config.Alerting.StrongStormKt,
	}
}

func (a *App) newService(sched *scheduler.Scheduler, source fetcher.StationProvider, notifier alerting.Notifier, recorder *metrics.Recorder) (*service.Service, error) {
	loc, err := a.Config.Station.Location()
	if err != nil {
		return nil, err
	}

	return service.New(service.Options{
		Thresholds:    a.thresholds(),
		Cooldown:      a.Config.Alerting.Cooldown,
		FetchTimeout:  a.Config.Station.RequestTimeout,
		NotifyTimeout: a.Config.Alerting.NotifyTimeout,
		SeriesLimit:   a.Config.Window.SeriesLimit,
		Location:      loc,
	}, sched, source, notifier, recorder, a.Logger), nil
}

// Run executes the poll loop and the HTTP API until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var recorder *metrics.Recorder
	var metricsHandler http.Handler
	if a.Config.Metrics.Enabled {
		recorder = metrics.New()
		metricsHandler = recorder.Handler()
	}

	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("telegram not configured or alerting disabled; alerts will only be logged")
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	svc, err := a.newService(sched, a.newSource(), notifier, recorder)
	if err != nil {
		return err
	}

	server := api.NewServer(api.ServerOptions{
		Name:         a.Config.App.Name,
		StaticDir:    a.Config.HTTP.StaticDir,
		ReadTimeout:  a.Config.HTTP.ReadTimeout,
		WriteTimeout: a.Config.HTTP.WriteTimeout,
		Metrics:      metricsHandler,
	}, svc, a.Logger)

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		a.Logger.Info().
			Dur("interval", a.Config.Scheduler.Interval).
			Float64("storm_kt", a.Config.Alerting.StormKt).
			Str("version", version.Version).
			Msg("starting monitoring service")
		err := svc.Run(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		addr := a.Config.HTTP.Addr()
		a.Logger.Info().Str("addr", addr).Msg("http server listening")
		if err := server.Listen(addr); err != nil {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-gctx.Done()
		if err := server.ShutdownWithTimeout(a.Config.HTTP.ShutdownTimeout); err != nil {
			a.Logger.Error().Err(err).Msg("http shutdown failed")
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring service stopped")
	return nil
}
