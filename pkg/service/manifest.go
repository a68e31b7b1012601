package service

import (
	"reflect"
	"sort"
	"strings"
)

// Constructor builds a service instance.
type Constructor func() (Service, error)

// Definition is one manifest entry.
type Definition struct {
	Name         string
	Priority     int
	New          Constructor
	Capabilities []reflect.Type
}

// Option configures a Definition.
type Option func(*Definition)

// WithPriority sets the startup priority. Lower starts earlier.
func WithPriority(p int) Option {
	return func(d *Definition) {
		d.Priority = p
	}
}

// Provides declares that the service can be resolved as T.
func Provides[T any]() Option {
	return func(d *Definition) {
		d.Capabilities = append(d.Capabilities, typeOf[T]())
	}
}

// Define creates a manifest entry. Without WithPriority the entry gets
// DefaultPriority.
func Define(name string, ctor Constructor, opts ...Option) Definition {
	d := Definition{
		Name:     name,
		Priority: DefaultPriority,
		New:      ctor,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// Instance returns a constructor that always yields svc.
func Instance(svc Service) Constructor {
	return func() (Service, error) { return svc, nil }
}

// Manifest is the static list of services a process runs.
type Manifest []Definition

func NewManifest(defs ...Definition) Manifest {
	return Manifest(defs)
}

// With returns a copy of m with defs appended.
func (m Manifest) With(defs ...Definition) Manifest {
	out := make(Manifest, 0, len(m)+len(defs))
	out = append(out, m...)
	return append(out, defs...)
}

// Sorted returns a copy ordered by ascending priority. Declaration order
// breaks ties.
func (m Manifest) Sorted() Manifest {
	out := make(Manifest, len(m))
	copy(out, m)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}

// Validate checks names and constructors.
func (m Manifest) Validate() error {
	seen := make(map[string]struct{}, len(m))
	for _, d := range m {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return NewInvalidDefinitionError("", "definition has no name")
		}
		if d.New == nil {
			return NewInvalidDefinitionError(name, "definition has no constructor")
		}
		if _, dup := seen[name]; dup {
			return NewDuplicateServiceError(name, name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
