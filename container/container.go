// Package container provides a minimal factory-map implementation of
// [router.Container]. It resolves names to factories; it does not autowire.
package container

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotBound is returned for names without a factory.
var ErrNotBound = errors.New("container: name not bound")

// Factory builds an instance from constructor params.
type Factory func(params ...any) (any, error)

// Container maps names to factories. It is safe for concurrent use.
type Container struct {
	mu        sync.RWMutex
	factories map[string]Factory
	shared    map[string]any
}

// New returns an empty container.
func New() *Container {
	return &Container{factories: map[string]Factory{}, shared: map[string]any{}}
}

// Bind registers factory under name, replacing any previous binding and
// discarding its shared instance.
func (c *Container) Bind(name string, factory Factory) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
	delete(c.shared, name)
	return c
}

// Instance binds a ready value. Make returns the same value every time.
func (c *Container) Instance(name string, v any) *Container {
	return c.Bind(name, func(...any) (any, error) { return v, nil })
}

// Has reports whether name is bound.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[name]
	return ok
}

// Make builds a fresh instance of name.
func (c *Container) Make(name string, params ...any) (any, error) {
	c.mu.RLock()
	f, ok := c.factories[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotBound, name)
	}
	v, err := f(params...)
	if err != nil {
		return nil, fmt.Errorf("container: make %q: %w", name, err)
	}
	return v, nil
}

// Get returns the shared instance of name, building it on first use.
// params are only used for that first build.
func (c *Container) Get(name string, params ...any) (any, error) {
	c.mu.RLock()
	v, ok := c.shared[name]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}

	v, err := c.Make(name, params...)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.shared[name]; ok {
		return existing, nil
	}
	c.shared[name] = v
	return v, nil
}
