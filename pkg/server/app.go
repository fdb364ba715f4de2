package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"PropRecon/internal/domain/models"
	domrepo "PropRecon/internal/domain/repository"
	"PropRecon/internal/usecase"
	pkgch "PropRecon/pkg/clickhouse"
	"PropRecon/pkg/config"
	xhttp "PropRecon/pkg/http"
	applogger "PropRecon/pkg/logger"
)

// App encapsulates the application lifecycle. It can serve the HTTP API
// with an optional periodic scheduler, or execute a single reconciliation
// run for the CLI.
type App struct {
	cfg    *config.Config
	logger *applogger.Logger
	run    *usecase.RunUseCase

	handler    xhttp.Handler
	httpServer *xhttp.Server

	store     domrepo.SignalStore
	publisher domrepo.Publisher
	chClient  *pkgch.Client
	rdb       *redis.Client
}

// New creates an App with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	run *usecase.RunUseCase,
	handler xhttp.Handler,
	store domrepo.SignalStore,
	publisher domrepo.Publisher,
	chClient *pkgch.Client,
	rdb *redis.Client,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		run:       run,
		handler:   handler,
		store:     store,
		publisher: publisher,
		chClient:  chClient,
		rdb:       rdb,
	}
}

// RunOnce executes one reconciliation run and releases all resources.
func (a *App) RunOnce(ctx context.Context, dryRun bool) (*models.RunReport, error) {
	defer a.closeResources()
	return a.run.Run(ctx, dryRun)
}

// Serve starts the HTTP server (plus the scheduler when enabled) and blocks
// until interrupted.
func (a *App) Serve() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler, a.logger,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	if a.cfg.Scheduler.Enabled {
		go a.schedule(ctx)
		a.logger.Info("scheduler started", applogger.Duration("interval", a.cfg.Scheduler.Interval))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// schedule triggers a run every interval. A run already in flight or an
// empty observed snapshot is reported and skipped, not escalated.
func (a *App) schedule(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Scheduler.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := a.run.Run(ctx, false)
			switch {
			case err == nil:
			case errors.Is(err, usecase.ErrRunInProgress):
				a.logger.Info("scheduled run skipped, another run in flight")
			case errors.Is(err, usecase.ErrNoObservedData):
				a.logger.Warn("scheduled run skipped", applogger.Error(err))
			default:
				a.logger.Error("scheduled run failed", applogger.Error(err))
			}
		}
	}
}

func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.httpServer.ShutdownTimeout())
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	a.closeResources()
	a.logger.Info("shutdown complete")
	return nil
}

func (a *App) closeResources() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("signal store close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Warn("redis close error", applogger.Error(err))
		}
	}
}
