package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	xhttp "CandleCast/pkg/http"
	pkgkafka "CandleCast/pkg/kafka"
	applogger "CandleCast/pkg/logger"
)

// Runner is a foreground loop such as the collector console. When it
// returns the application shuts down.
type Runner interface {
	Run(ctx context.Context) error
}

// App encapsulates one stage process: an optional bus consumer, the ops
// HTTP server and an optional foreground runner.
type App struct {
	name            string
	log             *applogger.Logger
	consumer        *pkgkafka.Consumer
	httpServer      *xhttp.Server
	runner          Runner
	shutdownTimeout time.Duration
	signals         []os.Signal
}

// Option configures App.
type Option func(*App)

// WithConsumer attaches a consumer with handlers already registered.
func WithConsumer(c *pkgkafka.Consumer) Option {
	return func(a *App) { a.consumer = c }
}

// WithRunner attaches a foreground loop.
func WithRunner(r Runner) Option {
	return func(a *App) { a.runner = r }
}

func WithShutdownTimeout(d time.Duration) Option {
	return func(a *App) { a.shutdownTimeout = d }
}

// New creates a new App instance with all dependencies.
func New(name string, log *applogger.Logger, httpServer *xhttp.Server, opts ...Option) *App {
	a := &App{
		name:            name,
		log:             log.With(applogger.Stage(name)),
		httpServer:      httpServer,
		shutdownTimeout: 5 * time.Second,
		signals:         []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run starts the application and blocks until interrupted or until the
// runner returns.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), a.signals...)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext is Run with caller-controlled cancellation.
func (a *App) RunContext(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.Strings("topics", a.consumer.Topics()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}

	var runErr error
	if a.runner != nil {
		done := make(chan error, 1)
		go func() { done <- a.runner.Run(ctx) }()
		select {
		case runErr = <-done:
		case <-ctx.Done():
			<-done
		}
	} else {
		<-ctx.Done()
	}

	a.log.Info("shutdown signal received")
	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown gracefully stops the server and the consumer. Infrastructure
// clients are closed by the cleanup returned from dependency injection.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
		firstErr = err
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	a.log.Info("shutdown complete")
	return firstErr
}
