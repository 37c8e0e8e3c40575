package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yanqian/mealplan-ai/internal/infra/config"
)

// Worker is a background loop that runs until its context is canceled.
type Worker interface {
	Run(ctx context.Context) error
}

// App encapsulates the HTTP server lifecycle and its background workers.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	workers []Worker
}

// NewApp is used by Wire to build the runnable app. worker may be nil.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, worker Worker) *App {
	app := &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server}
	if worker != nil {
		app.workers = append(app.workers, worker)
	}
	return app
}

// Run starts the HTTP server and workers and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		return a.server.Shutdown(shutdownCtx)
	})

	for _, w := range a.workers {
		w := w
		g.Go(func() error { return w.Run(gctx) })
	}

	return g.Wait()
}
