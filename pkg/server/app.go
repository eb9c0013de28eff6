package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	xhttp "Foresight/pkg/http"
	pkgkafka "Foresight/pkg/kafka"
	applogger "Foresight/pkg/logger"
)

// Job is a background loop that runs until its context is cancelled.
type Job func(ctx context.Context)

type closer struct {
	name string
	fn   func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	log             *applogger.Logger
	httpServer      *xhttp.Server
	consumer        *pkgkafka.Consumer
	handlers        []pkgkafka.MessageHandler
	jobs            []Job
	closers         []closer
	shutdownTimeout time.Duration
	wg              sync.WaitGroup
}

// New creates a new App. consumer may be nil when queue intake is disabled.
func New(l *applogger.Logger, httpServer *xhttp.Server, consumer *pkgkafka.Consumer, handlers ...pkgkafka.MessageHandler) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{
		log:             l,
		httpServer:      httpServer,
		consumer:        consumer,
		handlers:        handlers,
		shutdownTimeout: 30 * time.Second,
	}
}

// AddJob registers a background loop started with the app.
func (a *App) AddJob(j Job) { a.jobs = append(a.jobs, j) }

// AddCloser registers a resource to release on shutdown. Closers run in
// reverse registration order.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts everything and blocks until ctx is done, then shuts down.
func (a *App) RunContext(ctx context.Context) error {
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	for _, j := range a.jobs {
		a.wg.Add(1)
		go func(j Job) {
			defer a.wg.Done()
			j(jobCtx)
		}(j)
	}

	if a.consumer != nil && len(a.handlers) > 0 {
		for _, h := range a.handlers {
			a.consumer.RegisterHandler(h)
		}
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		for _, h := range a.handlers {
			a.log.Info("kafka consumer started", applogger.String("topic", h.Topic()))
		}
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return err
		}
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	cancelJobs()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.wg.Wait()

	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
