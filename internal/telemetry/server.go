// SPDX-License-Identifier: MPL-2.0

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsPath = "/metrics"
	LivePath    = "/live"
	ReadyPath   = "/ready"

	// DefaultGoroutineThreshold fails liveness when exceeded.
	DefaultGoroutineThreshold = 10000

	shutdownTimeout = 5 * time.Second
)

// ErrNotReady is reported by the readiness probe until MarkReady is called.
var ErrNotReady = errors.New("initial load not finished")

type (
	// Server exposes a private Prometheus registry and health probes.
	Server struct {
		registry *prometheus.Registry
		health   healthcheck.Handler
		logger   *log.Logger
		ready    atomic.Bool

		goroutines int
	}

	// Option configures a Server.
	Option func(*Server)
)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithGoroutineThreshold replaces DefaultGoroutineThreshold.
func WithGoroutineThreshold(n int) Option {
	return func(s *Server) { s.goroutines = n }
}

// New creates a Server with Go runtime and process collectors registered.
func New(opts ...Option) *Server {
	s := &Server{
		registry:   prometheus.NewRegistry(),
		health:     healthcheck.NewHandler(),
		goroutines: DefaultGoroutineThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default().WithPrefix("telemetry")
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.health.AddReadinessCheck("initial-load", func() error {
		if !s.ready.Load() {
			return ErrNotReady
		}
		return nil
	})
	s.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(s.goroutines))
	return s
}

// Registerer is where components register their collectors.
func (s *Server) Registerer() prometheus.Registerer { return s.registry }

// Gatherer exposes the registry for tests and custom exporters.
func (s *Server) Gatherer() prometheus.Gatherer { return s.registry }

// AddReadinessCheck adds a check that must pass for /ready to succeed.
func (s *Server) AddReadinessCheck(name string, check func() error) {
	s.health.AddReadinessCheck(name, check)
}

// AddLivenessCheck adds a check that must pass for /live and /ready.
func (s *Server) AddLivenessCheck(name string, check func() error) {
	s.health.AddLivenessCheck(name, check)
}

// MarkReady flips the initial-load readiness check.
func (s *Server) MarkReady() { s.ready.Store(true) }

// Handler routes the metrics and probe endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		Registry:          s.registry,
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc(LivePath, s.health.LiveEndpoint)
	mux.HandleFunc(ReadyPath, s.health.ReadyEndpoint)
	return mux
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("telemetry: listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully. It
// returns nil after a shutdown triggered by ctx.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case <-ctx.Done():
		case <-stop:
			return
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	s.logger.Info("serving telemetry", "addr", ln.Addr().String())
	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		<-done
		return nil
	}
	close(stop)
	<-done
	return fmt.Errorf("telemetry: serve: %w", err)
}
