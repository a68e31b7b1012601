package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iskaald/icecold/pkg/service"
)

// ServicePriority places the admin API after the logging service.
const ServicePriority = 100

// ServiceName is the manifest name of the admin API service.
const ServiceName = "api"

// shutdownGrace bounds how long Deinitialize waits for in-flight requests.
const shutdownGrace = 5 * time.Second

// Service runs the admin API server as a managed service.
//
// Initialize binds the port and serves from a goroutine. Deinitialize stops
// the server. When teardown was triggered by POST /quit, the handler that
// started it is still in flight, so the server is stopped in the background
// and Done is closed once it has drained.
type Service struct {
	config APIConfig
	rt     Runtime
	opts   []ServerOption

	mu          sync.Mutex
	server      *Server
	done        chan struct{}
	initialized atomic.Bool
	quitting    atomic.Int32
}

// NewService creates the admin API service for rt.
func NewService(config APIConfig, rt Runtime, opts ...ServerOption) *Service {
	// Done is closed until a server is started.
	done := make(chan struct{})
	close(done)

	s := &Service{
		config: config,
		opts:   opts,
		done:   done,
	}
	s.rt = &quitTracker{Runtime: rt, inFlight: &s.quitting}
	return s
}

func (s *Service) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized.Load() {
		return nil
	}

	server := NewServer(s.config, s.rt, s.opts...)
	if err := server.Listen(); err != nil {
		return err
	}
	go server.Serve()

	s.server = server
	s.done = make(chan struct{})
	s.initialized.Store(true)
	return nil
}

func (s *Service) Deinitialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized.Load() {
		return nil
	}
	s.initialized.Store(false)

	server, done := s.server, s.done
	s.server = nil

	stop := func() error {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Stop(ctx)
	}

	if s.quitting.Load() > 0 {
		go func() { _ = stop() }()
		return nil
	}
	return stop()
}

func (s *Service) IsInitialized() bool {
	return s.initialized.Load()
}

func (s *Service) OnWillQuit() {}

// Port returns the bound port, or 0 when the server is not running.
func (s *Service) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return 0
	}
	return s.server.Port()
}

// Errors delivers a serve failure from the running server. It returns nil
// when no server is running.
func (s *Service) Errors() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	return s.server.Errors()
}

// Done is closed once the most recently started server has fully stopped.
func (s *Service) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

var _ service.Service = (*Service)(nil)

// quitTracker counts quit requests served by the API so Deinitialize knows
// whether it is running underneath one of its own handlers.
type quitTracker struct {
	Runtime
	inFlight *atomic.Int32
}

func (q *quitTracker) RequestQuit(ctx context.Context) service.QuitResult {
	q.inFlight.Add(1)
	defer q.inFlight.Add(-1)
	return q.Runtime.RequestQuit(ctx)
}
