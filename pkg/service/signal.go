package service

import (
	"sync"

	"github.com/iskaald/icecold/internal/logger"
)

// Signal is a zero-argument broadcast. Handlers run synchronously in
// subscription order; a panicking handler is logged and skipped.
type Signal struct {
	name     string
	mu       sync.Mutex
	nextID   uint64
	handlers []signalHandler
}

type signalHandler struct {
	id uint64
	fn func()
}

// NewSignal creates a named signal. The name is used in logs.
func NewSignal(name string) *Signal {
	return &Signal{name: name}
}

func (s *Signal) Name() string {
	return s.name
}

// Subscribe registers fn and returns a function that removes it.
func (s *Signal) Subscribe(fn func()) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.handlers = append(s.handlers, signalHandler{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, h := range s.handlers {
				if h.id == id {
					s.handlers = append(s.handlers[:i:i], s.handlers[i+1:]...)
					return
				}
			}
		})
	}
}

// Emit calls every handler subscribed at the time of the call.
func (s *Signal) Emit() {
	s.mu.Lock()
	handlers := make([]signalHandler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		s.call(h.fn)
	}
}

func (s *Signal) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("signal handler panicked", "signal", s.name, "panic", r)
		}
	}()
	fn()
}

// Len returns the number of subscribers.
func (s *Signal) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}
