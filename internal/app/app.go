// Package app wires configuration, logging, the history store, the
// worker pool, and the scheduled jobs into a running service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"rxsched/internal/config"
	"rxsched/internal/history"
	"rxsched/internal/platform/httpclient"
	"rxsched/internal/platform/logger"
	"rxsched/pkg/closeable"
	"rxsched/pkg/pool"
	"rxsched/pkg/sched"
)

// App wires application components.
type App struct {
	cfg config.Config
	log *slog.Logger
}

// New creates a new App instance and loads configuration.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logger.New(logger.Options{
		Env:          cfg.Env,
		ConsoleLevel: cfg.Log.ConsoleLevel,
		FileLevel:    cfg.Log.FileLevel,
		File:         cfg.Log.File,
		App:          "schedmon",
	})
	return &App{cfg: cfg, log: log}, nil
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	a.log.Info("starting")
	defer func() { _ = logger.Close(a.log) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	p := pool.New(pool.Config{
		Workers:   a.cfg.Pool.Workers,
		QueueSize: a.cfg.Pool.QueueSize,
		Logger:    a.log,
	})
	p.Start()
	defer p.Stop()

	scheduler := sched.NewTracing(sched.NewPool(p), a.log)
	runner := NewRunner(a.log, store, time.Minute)

	tokens := closeable.NewComposite()
	defer tokens.Close()

	if err := a.scheduleJobs(ctx, scheduler, runner, p, store, tokens); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    a.cfg.HTTP.Addr,
		Handler: newRouter(a.cfg.Env, store, p),
	}
	go func() {
		a.log.Info("inspection server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("server", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	a.log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *App) openStore(ctx context.Context) (history.Store, error) {
	switch a.cfg.History.Driver {
	case "postgres":
		return history.NewPostgres(ctx, a.cfg.History.DSN)
	case "sqlite":
		return history.NewSQLite(ctx, a.cfg.History.Path)
	default:
		return nil, fmt.Errorf("unknown history driver %q", a.cfg.History.Driver)
	}
}

// scheduleJobs registers the service's recurring jobs and parks their
// cancellation tokens in tokens.
func (a *App) scheduleJobs(
	ctx context.Context,
	scheduler sched.Scheduler,
	runner *Runner,
	p *pool.Pool,
	store history.Store,
	tokens *closeable.Composite,
) error {
	hb, err := sched.ScheduleCron(scheduler, a.cfg.Jobs.HeartbeatSpec,
		runner.Wrap(ctx, "heartbeat", heartbeatJob(a.log, p)))
	if err != nil {
		return fmt.Errorf("schedule heartbeat: %w", err)
	}
	tokens.Add(hb)

	if a.cfg.Jobs.ProbeURL != "" {
		client := httpclient.New(httpclient.WithLogger(a.log))
		probe, err := sched.ScheduleCron(scheduler, a.cfg.Jobs.ProbeSpec,
			runner.Wrap(ctx, "probe", probeJob(client, a.cfg.Jobs.ProbeURL)))
		if err != nil {
			return fmt.Errorf("schedule probe: %w", err)
		}
		tokens.Add(probe)
	}

	retention := time.Duration(a.cfg.History.RetentionDays) * 24 * time.Hour
	prune, err := sched.ScheduleCron(scheduler, a.cfg.Jobs.PruneSpec,
		runner.Wrap(ctx, "prune", pruneJob(a.log, store, retention)))
	if err != nil {
		return fmt.Errorf("schedule prune: %w", err)
	}
	tokens.Add(prune)

	return nil
}
