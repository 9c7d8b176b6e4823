// Package server exposes the analysis engine over HTTP.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/tbckr/domainlens/internal/analysis"
	"github.com/tbckr/domainlens/internal/engine"
	"github.com/tbckr/domainlens/internal/metrics"
)

// ShutdownTimeout bounds how long in-flight requests may take after Run's
// context is cancelled.
const ShutdownTimeout = 10 * time.Second

//go:embed templates/*.html
var templateFS embed.FS

// Analyzer runs and invalidates analyses.
type Analyzer interface {
	Analyze(ctx context.Context, raw string, opts engine.AnalyzeOptions) (*analysis.Result, error)
	Invalidate(raw string) error
}

// Purger drops expired cache entries and reports how many were removed.
type Purger interface {
	Purge() int
}

// Options configures a Server.
type Options struct {
	Addr string
	// SweepInterval is how often expired cache entries are purged. Zero
	// disables the sweeper.
	SweepInterval time.Duration
}

// Server is the HTTP front end.
type Server struct {
	analyzer Analyzer
	metrics  *metrics.Metrics
	purger   Purger
	logger   *slog.Logger
	opts     Options
	tmpl     *template.Template
	now      func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics mounts /metrics and records request metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithPurger enables the periodic cache sweep.
func WithPurger(p Purger) Option {
	return func(s *Server) { s.purger = p }
}

// New creates a Server.
func New(a Analyzer, logger *slog.Logger, opts Options, options ...Option) (*Server, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	s := &Server{
		analyzer: a,
		logger:   logger,
		opts:     opts,
		tmpl:     tmpl,
		now:      time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Get("/health", s.health)
	r.Get("/analyze", s.analyze)
	r.Post("/analyze", s.analyze)
	r.Delete("/cache/{domain}", s.invalidate)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown", "error", err)
			return err
		}
		s.logger.Info("server stopped")
		return nil
	})
	if s.purger != nil && s.opts.SweepInterval > 0 {
		g.Go(func() error {
			s.sweep(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.purger.Purge(); n > 0 {
				s.logger.Debug("purged expired cache entries", "count", n)
			}
		}
	}
}

// logRequests logs every request and feeds the request metrics.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := s.now()
		defer func() {
			elapsed := s.now().Sub(start)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			if s.metrics != nil {
				s.metrics.ObserveRequest(route, r.Method, status, elapsed)
			}
			s.logger.Info("request",
				"method", r.Method,
				"route", route,
				"status", status,
				"duration", elapsed,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
