package service

import (
	"reflect"
	"sort"
	"sync"

	"github.com/iskaald/icecold/internal/logger"
	"github.com/iskaald/icecold/pkg/logging"
)

// LogPath is the caller path lifecycle components log under.
const LogPath = "icecold/service"

// Registry holds service descriptors keyed by concrete type.
//
// Mutation happens on the lifecycle passes; the lock exists so reporting
// (admin API, quit votes) can read concurrently.
type Registry struct {
	mu      sync.RWMutex
	byType  map[reflect.Type]*Descriptor
	byName  map[string]*Descriptor
	index   map[reflect.Type]*Descriptor
	ordered []*Descriptor
	seq     uint64
	log     *logging.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger routes not-found reports through l.
func WithRegistryLogger(l *logging.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = l
	}
}

func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byType: make(map[reflect.Type]*Descriptor),
		byName: make(map[string]*Descriptor),
		index:  make(map[reflect.Type]*Descriptor),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds d and assigns its registration sequence number.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil {
		return NewInvalidDefinitionError("", "descriptor is nil")
	}
	if isNil(d.Instance) {
		return NewInvalidDefinitionError(d.Name, "instance is nil")
	}
	if d.Type == nil {
		d.Type = reflect.TypeOf(d.Instance)
	}
	if d.Name == "" {
		d.Name = d.Type.String()
	}
	for _, c := range d.Capabilities {
		if c == nil {
			return NewInvalidDefinitionError(d.Name, "capability type is nil")
		}
		if c != d.Type && !(c.Kind() == reflect.Interface && d.Type.Implements(c)) {
			return NewInvalidDefinitionError(d.Name, "does not implement declared capability "+c.String())
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byType[d.Type]; ok {
		return NewDuplicateServiceError(d.Name, existing.Name)
	}
	if existing, ok := r.byName[d.Name]; ok {
		return NewDuplicateServiceError(d.Name, existing.Name)
	}

	r.seq++
	d.Seq = r.seq
	r.byType[d.Type] = d
	r.byName[d.Name] = d
	r.ordered = append(r.ordered, d)

	for _, c := range d.Capabilities {
		if _, taken := r.index[c]; !taken {
			r.index[c] = d
		}
	}
	return nil
}

// resolve finds the descriptor for t: exact concrete type, then the
// capability index, then a scan in registration order. Scan hits are
// memoized so later calls return the same instance. Services whose
// Initialize failed are never returned.
func (r *Registry) resolve(t reflect.Type, matches func(Service) bool) (*Descriptor, bool) {
	r.mu.RLock()
	if d, ok := r.byType[t]; ok && d.State != StateFailed {
		r.mu.RUnlock()
		return d, true
	}
	if d, ok := r.index[t]; ok && d.State != StateFailed {
		r.mu.RUnlock()
		return d, true
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	indexed, ok := r.index[t]
	if ok && indexed.State != StateFailed {
		return indexed, true
	}
	for _, d := range r.ordered {
		if d.State == StateFailed || !matches(d.Instance) {
			continue
		}
		// A failed declared provider keeps its slot; the fallback is not memoized.
		if indexed == nil {
			r.index[t] = d
		}
		return d, true
	}
	return nil, false
}

func isNil(s Service) bool {
	if s == nil {
		return true
	}
	v := reflect.ValueOf(s)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func lookup[T any](r *Registry) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	d, ok := r.resolve(typeOf[T](), func(s Service) bool {
		_, ok := s.(T)
		return ok
	})
	if !ok {
		return zero, false
	}
	v, ok := d.Instance.(T)
	return v, ok
}

// Resolve returns the service satisfying T. Repeated calls return the same
// instance. When nothing matches, a not-found error is logged and the zero
// value is returned.
func Resolve[T any](r *Registry) (T, bool) {
	v, ok := lookup[T](r)
	if !ok {
		err := NewNotFoundError(typeOf[T]().String())
		if r != nil && r.log != nil {
			r.log.Exception(err)
		} else {
			logger.Warn("service lookup failed", logger.KeyError, err.Error())
		}
	}
	return v, ok
}

// Lookup is Resolve returning the not-found error instead of logging it.
func Lookup[T any](r *Registry) (T, error) {
	v, ok := lookup[T](r)
	if !ok {
		return v, NewNotFoundError(typeOf[T]().String())
	}
	return v, nil
}

// AllOrdered returns descriptors sorted by (Priority, Seq). Descending is
// the exact reverse of ascending.
func (r *Registry) AllOrdered(ascending bool) []*Descriptor {
	r.mu.RLock()
	out := make([]*Descriptor, len(r.ordered))
	copy(out, r.ordered)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Seq < out[j].Seq
	})
	if !ascending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[name]
	return d, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

// Snapshot returns value copies of every descriptor in startup order.
func (r *Registry) Snapshot() []DescriptorInfo {
	ordered := r.AllOrdered(true)

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]DescriptorInfo, len(ordered))
	for i, d := range ordered {
		out[i] = d.info()
	}
	return out
}

// StateOf returns d's current state.
func (r *Registry) StateOf(d *Descriptor) State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return d.State
}

func (r *Registry) setState(d *Descriptor, s State, err error) {
	r.mu.Lock()
	d.State = s
	d.Err = err
	r.mu.Unlock()
}

// release drops every descriptor.
func (r *Registry) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType = make(map[reflect.Type]*Descriptor)
	r.byName = make(map[string]*Descriptor)
	r.index = make(map[reflect.Type]*Descriptor)
	r.ordered = nil
}
