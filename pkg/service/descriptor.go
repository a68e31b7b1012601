package service

import (
	"fmt"
	"math"
	"reflect"
)

// DefaultPriority is used when a definition declares none. Such services
// start after every prioritized service and stop before them.
const DefaultPriority = math.MaxInt

// State is a descriptor's lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateRunning
	StateDeinitialized
	// StateFailed marks a service whose Initialize returned an error.
	// Failed services are skipped during teardown.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateDeinitialized:
		return "deinitialized"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Descriptor tracks one registered service.
type Descriptor struct {
	Name         string
	Type         reflect.Type
	Priority     int
	Instance     Service
	State        State
	Seq          uint64
	Capabilities []reflect.Type
	Err          error
}

// NewDescriptor describes instance. The concrete type is taken from the
// instance itself.
func NewDescriptor(name string, instance Service, priority int, capabilities ...reflect.Type) *Descriptor {
	d := &Descriptor{
		Name:         name,
		Priority:     priority,
		Instance:     instance,
		Capabilities: capabilities,
	}
	if instance != nil {
		d.Type = reflect.TypeOf(instance)
		if d.Name == "" {
			d.Name = d.Type.String()
		}
	}
	return d
}

// DescriptorInfo is a value copy of a descriptor for reporting.
type DescriptorInfo struct {
	Name         string   `json:"name" yaml:"name"`
	Type         string   `json:"type" yaml:"type"`
	Priority     int      `json:"priority" yaml:"priority"`
	State        string   `json:"state" yaml:"state"`
	Seq          uint64   `json:"seq" yaml:"seq"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Voter        bool     `json:"voter" yaml:"voter"`
	Error        string   `json:"error,omitempty" yaml:"error,omitempty"`
}

func (d *Descriptor) info() DescriptorInfo {
	out := DescriptorInfo{
		Name:     d.Name,
		Priority: d.Priority,
		State:    d.State.String(),
		Seq:      d.Seq,
	}
	if d.Type != nil {
		out.Type = d.Type.String()
	}
	for _, c := range d.Capabilities {
		out.Capabilities = append(out.Capabilities, c.String())
	}
	if _, ok := d.Instance.(QuitVoter); ok {
		out.Voter = true
	}
	if d.Err != nil {
		out.Error = d.Err.Error()
	}
	return out
}

// PriorityString renders the priority, showing "default" for DefaultPriority.
func PriorityString(p int) string {
	if p == DefaultPriority {
		return "default"
	}
	return fmt.Sprintf("%d", p)
}
