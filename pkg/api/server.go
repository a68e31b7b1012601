package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/iskaald/icecold/internal/logger"
)

// Server provides an HTTP server for the admin API.
//
// Endpoints:
//   - GET /health: Liveness probe
//   - GET /health/ready: Readiness probe
//   - GET /services: Service registry
//   - GET /routes: Log routing table
//   - POST /quit: Negotiated quit
//   - GET /metrics: Prometheus metrics
//
// The server supports graceful shutdown with configurable timeout.
type Server struct {
	server       *http.Server
	config       APIConfig
	listener     net.Listener
	mu           sync.Mutex
	errCh        chan error
	shutdownOnce sync.Once
}

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithListenAddr overrides the listen address derived from the configured
// port. Use "127.0.0.1:0" to pick a free port.
func WithListenAddr(addr string) ServerOption {
	return func(s *Server) {
		s.server.Addr = addr
	}
}

// NewServer creates a new API HTTP server.
//
// The server is created in a stopped state. Call Listen and Serve, or Start,
// to begin serving requests.
//
// Defaults are applied here to ensure the server works correctly even when
// created directly (e.g., in tests). This is idempotent with the defaults
// applied during config loading.
func NewServer(config APIConfig, rt Runtime, opts ...ServerOption) *Server {
	config.ApplyDefaults()

	s := &Server{
		server: &http.Server{
			Addr:         config.Addr(),
			Handler:      NewRouter(rt),
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
			IdleTimeout:  config.IdleTimeout,
		},
		config: config,
		errCh:  make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Listen binds the listen address without serving. Bind errors surface here
// so callers can fail synchronously.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("API server failed to listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln
	return nil
}

// Serve accepts connections on the bound listener until Stop is called.
// It blocks; run it in a goroutine.
func (s *Server) Serve() {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		s.reportError(errors.New("API server is not listening"))
		return
	}

	logger.Info("API server listening", "addr", ln.Addr().String())
	logger.Debug("API endpoints available",
		"health", fmt.Sprintf("http://localhost:%d/health", s.Port()),
		"services", fmt.Sprintf("http://localhost:%d/services", s.Port()),
		"routes", fmt.Sprintf("http://localhost:%d/routes", s.Port()),
	)

	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.reportError(err)
	}
}

func (s *Server) reportError(err error) {
	select {
	case s.errCh <- err:
	default:
	}
}

// Errors delivers a serve failure. At most one error is delivered.
func (s *Server) Errors() <-chan error {
	return s.errCh
}

// Start starts the API HTTP server and blocks until the context is cancelled
// or an error occurs.
//
// When the context is cancelled, Start initiates graceful shutdown and returns.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the server fails to start or shutdown encounters an error
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	go s.Serve()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		logger.Info("API server shutdown signal received")
		// Don't use the cancelled ctx as it would cause immediate shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-s.errCh:
		return fmt.Errorf("API server failed: %w", err)
	}
}

// Stop initiates graceful shutdown of the API server.
//
// Stop is safe to call multiple times and safe to call concurrently with Start().
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		logger.Debug("API server shutdown initiated")

		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("API server shutdown error: %w", err)
			logger.Error("API server shutdown error", "error", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the TCP port the server is listening on, or the configured
// port before Listen.
func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		if addr, ok := s.listener.Addr().(*net.TCPAddr); ok {
			return addr.Port
		}
	}
	return s.config.Port
}
