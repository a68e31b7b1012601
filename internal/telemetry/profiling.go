package telemetry

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/grafana/pyroscope-go"
)

// ProfilingConfig holds Pyroscope settings.
type ProfilingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Endpoint is the Pyroscope server URL.
	Endpoint string

	// ProfileTypes lists the profiles to collect, by the names in
	// ProfileTypeNames.
	ProfileTypes []string
}

// DefaultProfilingConfig returns profiling disabled with CPU, heap and
// goroutine profiles selected.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		ServiceName:    "icecold",
		ServiceVersion: "dev",
		Environment:    "release",
		Endpoint:       "http://localhost:4040",
		ProfileTypes:   []string{"cpu", "inuse_space", "goroutines"},
	}
}

var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// ProfileTypeNames returns the accepted profile type names, sorted.
func ProfileTypeNames() []string {
	names := make([]string, 0, len(profileTypes))
	for name := range profileTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateProfileTypes reports the first unknown profile type.
func ValidateProfileTypes(types []string) error {
	_, err := resolveProfileTypes(types)
	return err
}

func resolveProfileTypes(types []string) ([]pyroscope.ProfileType, error) {
	out := make([]pyroscope.ProfileType, 0, len(types))
	for _, name := range types {
		pt, ok := profileTypes[name]
		if !ok {
			return nil, fmt.Errorf("unknown profile type %q (valid: %v)", name, ProfileTypeNames())
		}
		out = append(out, pt)
	}
	return out, nil
}

var (
	profMu   sync.Mutex
	profiler *pyroscope.Profiler
)

// InitProfiling starts the Pyroscope profiler. The returned function stops
// it; it is safe to call when profiling is disabled.
func InitProfiling(cfg ProfilingConfig) (func() error, error) {
	noop := func() error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}

	types, err := resolveProfileTypes(cfg.ProfileTypes)
	if err != nil {
		return nil, err
	}

	for _, name := range cfg.ProfileTypes {
		switch name {
		case "mutex_count", "mutex_duration":
			runtime.SetMutexProfileFraction(5)
		case "block_count", "block_duration":
			runtime.SetBlockProfileRate(5)
		}
	}

	p, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags: map[string]string{
			"version":     cfg.ServiceVersion,
			"environment": cfg.Environment,
		},
		ProfileTypes: types,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}

	profMu.Lock()
	profiler = p
	profMu.Unlock()

	return func() error {
		profMu.Lock()
		defer profMu.Unlock()
		if profiler == nil {
			return nil
		}
		err := profiler.Stop()
		profiler = nil
		return err
	}, nil
}

// IsProfilingEnabled reports whether a profiler is running.
func IsProfilingEnabled() bool {
	profMu.Lock()
	defer profMu.Unlock()
	return profiler != nil
}
