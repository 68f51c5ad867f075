// Package server exposes the layout pipeline over HTTP for `stratum serve`.
//
// Routes:
//
//	POST /layout    lay out the request body (JSON or DOT graph)
//	GET  /engines   list layout engines
//	GET  /version   build information
//	GET  /healthz   liveness probe
//
// POST /layout reads the graph from the body. The input format comes from
// the "format" query parameter or the Content-Type (text/vnd.graphviz is
// DOT, anything else JSON); the response format from "output" (json, dot
// or svg). Layout options are taken from query parameters named like the
// configuration keys: rankdir, ranksep, nodesep, ranking, positioning,
// splines, engine, parallel. Responses carry X-Stratum-Cache (hit or miss)
// and X-Stratum-Run-Id headers.
//
// A request with an X-Stratum-Scope header uses a cache namespace of its
// own, so tenants sharing a Redis instance never see each other's entries.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/stratum/pkg/layout"
	"github.com/matzehuels/stratum/pkg/pipeline"
)

const (
	// DefaultMaxBodyBytes limits request bodies.
	DefaultMaxBodyBytes = 10 << 20

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	shutdownTimeout = 10 * time.Second
)

// Option configures optional Server behavior.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithTimeout bounds the time spent on one request.
func WithTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLayoutDefaults sets the options used for fields a request leaves
// unset, typically the [layout] section of the configuration file. opts
// must not have been validated yet, since request parameters are merged in
// before validation.
func WithLayoutDefaults(opts layout.Options) Option {
	return func(s *Server) { s.defaults = opts }
}

// Server holds the chi router and the pipeline runner.
type Server struct {
	router   chi.Router
	runner   *pipeline.Runner
	logger   *log.Logger
	maxBody  int64
	timeout  time.Duration
	defaults layout.Options
}

// New creates a Server with all routes configured.
func New(runner *pipeline.Runner, opts ...Option) *Server {
	s := &Server{
		runner:  runner,
		maxBody: DefaultMaxBodyBytes,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Timeout(s.timeout))

	r.Post("/layout", s.handleLayout)
	r.Get("/engines", s.handleEngines)
	r.Get("/version", s.handleVersion)
	r.Get("/healthz", s.handleHealth)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler by delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}
