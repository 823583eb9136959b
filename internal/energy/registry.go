package energy

import (
	"fmt"
	"sort"
)

// Registry maps backend names to constructors.
type Registry struct {
	backends map[string]func() Backend
}

func NewRegistry() *Registry {
	r := &Registry{backends: make(map[string]func() Backend)}
	r.Register("reference", func() Backend { return NewReference() })
	r.Register("fast", func() Backend { return NewFast() })
	return r
}

func (r *Registry) Register(name string, fn func() Backend) {
	r.backends[name] = fn
}

// Get returns the named backend. "auto" picks the fastest available one.
func (r *Registry) Get(name string) (Backend, error) {
	if name == "" || name == "auto" {
		return r.AutoSelect(), nil
	}
	fn, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown energy backend: %s", name)
	}
	b := fn()
	if !b.Available() {
		return nil, fmt.Errorf("energy backend %s is not available", name)
	}
	return b, nil
}

func (r *Registry) AutoSelect() Backend {
	if fn, ok := r.backends["fast"]; ok {
		if b := fn(); b.Available() {
			return b
		}
	}
	return NewReference()
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
