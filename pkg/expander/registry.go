package expander

import (
	"fmt"
	"sync"
)

// Registry maps names to controller options so hosts can attach
// expanders to fields by name. A name can be defined once.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Options
}

// DefaultRegistry is the process-wide registry.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Options)}
}

// Define registers opts under name.
func (r *Registry) Define(name string, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.defs[name]; ok {
		return fmt.Errorf("%w: %q", ErrAlreadyDefined, name)
	}
	r.defs[name] = opts
	return nil
}

// Lookup returns the options registered under name.
func (r *Registry) Lookup(name string) (Options, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	opts, ok := r.defs[name]
	return opts, ok
}

// Attach creates a controller for f from the options defined as name.
// A field holds at most one controller.
func (r *Registry) Attach(name string, f Field) (*Controller, error) {
	opts, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotDefined, name)
	}

	a := f.anchor()
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.owner != nil {
		return nil, ErrAlreadyAttached
	}
	c, err := New(f, opts)
	if err != nil {
		return nil, err
	}
	a.owner = c
	return c, nil
}

// Attached returns the controller attached to f, if any.
func Attached(f Field) *Controller {
	a := f.anchor()
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.owner
}

// Detach deactivates and destroys the controller attached to f.
func Detach(f Field) {
	a := f.anchor()
	a.mu.Lock()
	c := a.owner
	a.owner = nil
	a.mu.Unlock()

	if c != nil {
		c.Deactivate()
		c.Destroy()
	}
}
