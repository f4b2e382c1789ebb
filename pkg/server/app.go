package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FinRisk/internal/usecase"
	"FinRisk/pkg/config"
	xhttp "FinRisk/pkg/http"
	pkgkafka "FinRisk/pkg/kafka"
	applogger "FinRisk/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	calib      *usecase.CalibrationUseCase
}

// New creates a new App instance with all dependencies. consumer may be nil.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	calib *usecase.CalibrationUseCase,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		consumer:   consumer,
		kh:         kh,
		calib:      calib,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := a.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	a.l.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start refreshes coefficient tables and starts the consumer and HTTP server.
func (a *App) Start(ctx context.Context) error {
	if a.cfg.Calibration.RebuildOnStart && a.calib != nil {
		rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		// seeded tables stay in place for symbols that fail
		if err := a.calib.RebuildAll(rctx, a.cfg.Calibration.SymbolNames()); err != nil {
			a.l.Warn("startup table rebuild incomplete", applogger.Error(err))
		}
		cancel()
	}

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	return nil
}

// Shutdown gracefully stops all services. Clients owned by the DI container
// are closed by its cleanup function.
func (a *App) Shutdown(ctx context.Context) error {
	a.l.Info("shutting down")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
