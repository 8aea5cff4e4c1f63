// Package server provides the HTTP preview server. Every script it runs
// goes through a single worker, so requests never execute concurrently.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/leapstack-labs/fidgetstar/internal/model"
	"github.com/leapstack-labs/fidgetstar/internal/render"
	"github.com/leapstack-labs/fidgetstar/internal/state"
	"github.com/leapstack-labs/fidgetstar/internal/worker"
	"golang.org/x/sync/errgroup"
)

// History lists recorded runs.
type History interface {
	ListRuns(ctx context.Context, limit int) ([]*state.Run, error)
}

// Config holds configuration for the preview server.
type Config struct {
	Worker    *worker.Worker
	History   History // optional
	ModelsDir string
	Render    render.Options
	Port      int
	// Watch broadcasts model file changes to preview pages.
	Watch  bool
	Logger *slog.Logger
}

// Server is the preview server.
type Server struct {
	worker   *worker.Worker
	history  History
	loader   *model.Loader
	render   render.Options
	port     int
	watch    bool
	logger   *slog.Logger
	notifier *Notifier
}

// New creates a preview server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	opts := cfg.Render
	if opts.Width == 0 && opts.Height == 0 && opts.Extent == 0 {
		opts = render.DefaultOptions()
	}
	return &Server{
		worker:   cfg.Worker,
		history:  cfg.History,
		loader:   model.NewLoader(cfg.ModelsDir),
		render:   opts,
		port:     cfg.Port,
		watch:    cfg.Watch,
		logger:   logger,
		notifier: NewNotifier(),
	}
}

// Notifier returns the server's model change notifier.
func (s *Server) Notifier() *Notifier { return s.notifier }

// Handler returns the router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Get("/", s.handleIndex)
	r.Get("/events", s.handleEvents)
	r.Post("/preview", s.handlePreview)
	r.Get("/render/{model}.png", s.handleRenderModel)

	r.Route("/api", func(r chi.Router) {
		r.Post("/run", s.handleRun)
		r.Post("/eval", s.handleEval)
		r.Post("/render", s.handleRenderScript)
		r.Get("/models", s.handleListModels)
		r.Get("/models/{model}", s.handleGetModel)
		r.Get("/runs", s.handleListRuns)
	})
	return r
}

// Serve runs the worker, the HTTP server and, when enabled, the model
// watcher until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting preview server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		return s.worker.Run(egctx)
	})

	if s.watch {
		eg.Go(func() error {
			return s.watchModels(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down preview server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
