package capability

import (
	"errors"
	"fmt"

	"github.com/botrelay/botrelay/core"
)

// Descriptor declares a capability type at agent-definition time. It is
// immutable after registration.
//
// A shared descriptor carries ready-built, stateless Functions registered once
// per cached engine. An instance descriptor carries a Bind factory producing
// thread-bound functions fresh every turn; those replace any prior binding
// registered under the same descriptor name.
type Descriptor struct {
	// Name identifies the capability type; unique within a registry.
	Name string
	// Shared marks the functions stateless and shareable across turns.
	Shared bool
	// Functions are the ready instances of a shared descriptor.
	Functions []Capability
	// Bind constructs thread-bound functions for an instance descriptor. The
	// thread may be nil for completion-mode calls.
	Bind func(t *core.Thread) ([]Capability, error)
}

// Registry classifies capability descriptors and exposes their functions to
// the engine builder. It is immutable after construction.
type Registry struct {
	descriptors []Descriptor
	byName      map[string]int
}

// NewRegistry validates and indexes the given descriptors. A shared
// descriptor must carry at least one function; an instance descriptor must
// carry a Bind factory. Duplicate descriptor names are rejected.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	r := &Registry{descriptors: descriptors, byName: make(map[string]int, len(descriptors))}
	for i, d := range descriptors {
		if d.Name == "" {
			return nil, fmt.Errorf("capability descriptor %d has no name", i)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("duplicate capability descriptor %q", d.Name)
		}
		if d.Shared && len(d.Functions) == 0 {
			return nil, fmt.Errorf("shared capability %q declares no functions", d.Name)
		}
		if !d.Shared && d.Bind == nil {
			return nil, &ConstructionError{Descriptor: d.Name, Err: errors.New("instance capability has no bind factory")}
		}
		r.byName[d.Name] = i
	}
	return r, nil
}

// Descriptors returns the registered descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor { return r.descriptors }

// Shared returns all functions of shared descriptors. These may be registered
// once on a cached engine and reused across turns.
func (r *Registry) Shared() []Capability {
	var out []Capability
	for _, d := range r.descriptors {
		if d.Shared {
			out = append(out, d.Functions...)
		}
	}
	return out
}

// BindInstances constructs the thread-bound functions of every instance
// descriptor, keyed by descriptor name. A failing factory aborts with a
// *ConstructionError naming the descriptor.
func (r *Registry) BindInstances(t *core.Thread) (map[string][]Capability, error) {
	out := make(map[string][]Capability)
	for _, d := range r.descriptors {
		if d.Shared {
			continue
		}
		fns, err := d.Bind(t)
		if err != nil {
			return nil, &ConstructionError{Descriptor: d.Name, Err: err}
		}
		out[d.Name] = fns
	}
	return out, nil
}
