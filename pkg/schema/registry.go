package schema

import (
	"fmt"
	"sync"
)

// Registry holds record type descriptors by name. Types are registered at
// startup and never mutated afterwards; reads are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]*Type),
	}
}

// Register adds a type descriptor. Registering the same name twice is a
// programming mistake and fails.
func (r *Registry) Register(t *Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Name]; exists {
		return fmt.Errorf("record type %q is already registered", t.Name)
	}
	r.types[t.Name] = t
	return nil
}

// MustRegister is Register for startup wiring where a failure is fatal
func (r *Registry) MustRegister(t *Type) *Registry {
	if err := r.Register(t); err != nil {
		panic(err)
	}
	return r
}

// Get returns the named type descriptor
func (r *Registry) Get(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.types[name]
	return t, ok
}

// Names returns the registered type names
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.types))
	for name := range r.types {
		names = append(names, name)
	}
	return names
}
