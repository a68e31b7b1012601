package logging

import (
	"errors"
	"sync/atomic"
)

// ServicePriority is the logging service's startup priority. It must come
// up before anything that logs through the router.
const ServicePriority = 0

// ServicePath is the caller path the logging service logs under.
const ServicePath = "icecold/logging"

// CatalogSource loads the group catalog and the default tiers.
type CatalogSource interface {
	LoadCatalog() (*Catalog, Tiers, error)
}

// CatalogSourceFunc adapts a function to CatalogSource.
type CatalogSourceFunc func() (*Catalog, Tiers, error)

func (f CatalogSourceFunc) LoadCatalog() (*Catalog, Tiers, error) { return f() }

// LoggerService is the capability other services resolve to log through
// the routing table.
type LoggerService interface {
	Router() *Router
	For(callerPath string) *Logger
}

// Service installs the routing table during startup. A catalog that fails
// to load is reported as a warning and routing stays on the default tiers.
type Service struct {
	router      *Router
	source      CatalogSource
	log         *Logger
	initialized atomic.Bool
	degraded    atomic.Bool
}

// NewService creates the logging service. source may be nil.
func NewService(router *Router, source CatalogSource) *Service {
	return &Service{
		router: router,
		source: source,
		log:    router.For(ServicePath),
	}
}

func (s *Service) Router() *Router {
	return s.router
}

func (s *Service) For(callerPath string) *Logger {
	return s.router.For(callerPath)
}

// Degraded reports whether the catalog failed to load.
func (s *Service) Degraded() bool {
	return s.degraded.Load()
}

func (s *Service) Initialize() error {
	if s.initialized.Load() {
		return nil
	}

	catalog, defaults, err := s.load()
	if err != nil {
		s.degraded.Store(true)
		var malformed *CatalogMalformedError
		if errors.As(err, &malformed) {
			s.log.Warningf("log catalog rejected, using default tiers: %v", err)
		} else {
			s.log.Warningf("log catalog unavailable, using default tiers: %v", err)
		}
		catalog, defaults = nil, s.router.Defaults()
	}

	if err := s.router.Install(catalog, defaults); err != nil {
		if !errors.Is(err, ErrAlreadyInstalled) {
			return err
		}
		s.log.Warning("routing table was already installed; keeping it")
	} else {
		s.log.Infof("log routing installed: %d group(s), environment %s",
			catalog.Len(), s.router.Environment())
	}

	s.initialized.Store(true)
	return nil
}

func (s *Service) load() (*Catalog, Tiers, error) {
	if s.source == nil {
		return nil, s.router.Defaults(), nil
	}
	return s.source.LoadCatalog()
}

func (s *Service) Deinitialize() error {
	s.initialized.Store(false)
	return nil
}

func (s *Service) IsInitialized() bool {
	return s.initialized.Load()
}

func (s *Service) OnWillQuit() {}
