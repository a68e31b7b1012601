// Package service provides the service registry, the priority-ordered
// lifecycle orchestrator and the two-phase quit coordinator.
//
// Services are declared in a Manifest, constructed and initialized in
// ascending priority order at startup, and torn down in exactly the reverse
// order. A quit request first notifies every service, then asks every
// running QuitVoter concurrently; teardown only happens if all of them agree.
package service

import "context"

// Service is the lifecycle contract every managed component implements.
//
// Initialize and Deinitialize run synchronously on the lifecycle pass and
// must not block. Long-running work belongs in goroutines started from
// Initialize and stopped from Deinitialize.
type Service interface {
	Initialize() error
	Deinitialize() error
	IsInitialized() bool

	// OnWillQuit is called on every registered service before any vote
	// is collected.
	OnWillQuit()
}

// QuitVoter is implemented by services that may veto a quit request.
// Returning an error counts as a veto.
type QuitVoter interface {
	CanQuit(ctx context.Context) (bool, error)
}
