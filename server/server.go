package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// MetricsPath is the path metrics are exposed on.
	MetricsPath = "/metrics"

	shutdownTimeout = 5 * time.Second
)

// Config holds the metrics server configuration.
type Config struct {
	// ListenAddr is the host:port to listen on.
	ListenAddr string

	// Gatherer supplies the exposed metrics.
	Gatherer prometheus.Gatherer
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address required")
	}
	if c.Gatherer == nil {
		return fmt.Errorf("gatherer required")
	}
	return nil
}

// Server exposes Prometheus metrics over HTTP.
type Server struct {
	cfg *Config

	httpServer *http.Server
	listener   net.Listener

	started bool
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// New creates a new metrics server.
func New(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle(MetricsPath, promhttp.HandlerFor(
		cfg.Gatherer, promhttp.HandlerOpts{},
	))

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Start starts listening and serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	listener, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w",
			s.cfg.ListenAddr, err)
	}
	s.listener = listener
	s.started = true

	log.Infof("Metrics server listening on %s", listener.Addr())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		err := s.httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server stopped: %v", err)
		}
	}()

	return nil
}

// Stop shuts the server down and waits for it to exit.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.wg.Wait()
	s.started = false

	return err
}

// Addr returns the address the server listens on, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}

	return s.listener.Addr().String()
}
