package middleware

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/iaconlabs/switchyard/httperr"
	"github.com/iaconlabs/switchyard/router"
)

// DefaultOrigin is recorded when a registration does not name its origin.
const DefaultOrigin = "undefined"

// Registration is one alias entry of the [Registry].
type Registration struct {
	Concrete string
	Alias    string
	Origin   string
}

// Registry maps aliases to concrete middleware types built by the container.
// Registrations are write-once so earlier registrants cannot be overridden.
type Registry struct {
	mu        sync.RWMutex
	container router.Container
	entries   map[string]Registration
}

// NewRegistry returns an empty registry building middleware through c.
// c may be nil until the registry is attached to a router.
func NewRegistry(c router.Container) *Registry {
	return &Registry{container: c, entries: map[string]Registration{}}
}

// SetContainer replaces the container used by [Registry.Make].
func (reg *Registry) SetContainer(c router.Container) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.container = c
}

// Register maps alias to concrete. A second registration for the same alias
// is ignored; the return value reports whether this call took effect.
func (reg *Registry) Register(concrete, alias string, origin ...string) bool {
	o := DefaultOrigin
	if len(origin) > 0 && origin[0] != "" {
		o = origin[0]
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, exists := reg.entries[alias]; exists {
		return false
	}
	reg.entries[alias] = Registration{Concrete: concrete, Alias: alias, Origin: o}
	return true
}

// Lookup returns the registration for alias.
func (reg *Registry) Lookup(alias string) (Registration, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.entries[alias]
	return r, ok
}

// Registrations returns every registration sorted by alias.
func (reg *Registry) Registrations() []Registration {
	reg.mu.RLock()
	out := make([]Registration, 0, len(reg.entries))
	for _, r := range reg.entries {
		out = append(out, r)
	}
	reg.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Alias < out[j].Alias })
	return out
}

// Make builds the middleware named alias. The container is asked for alias
// itself first, then for the concrete type registered under it.
func (reg *Registry) Make(alias string, args ...any) (router.Middleware, error) {
	reg.mu.RLock()
	c := reg.container
	entry, registered := reg.entries[alias]
	reg.mu.RUnlock()

	name := ""
	switch {
	case c != nil && c.Has(alias):
		name = alias
	case registered && c != nil:
		name = entry.Concrete
	default:
		return nil, &httperr.MiddlewareResolutionError{Alias: alias}
	}

	built, err := c.Make(name, args...)
	if err != nil {
		return nil, fmt.Errorf("build middleware %q: %w", alias, err)
	}
	return asMiddleware(alias, built)
}

// Resolve returns the middleware for e. built reports whether a new instance
// was created for this call.
func (reg *Registry) Resolve(e Entry) (mw router.Middleware, built bool, err error) {
	if e.Instance != nil {
		return e.Instance, false, nil
	}
	mw, err = reg.Make(e.Name, e.Args...)
	return mw, err == nil, err
}

func asMiddleware(alias string, v any) (router.Middleware, error) {
	switch m := v.(type) {
	case router.Middleware:
		return m, nil
	case func(r *http.Request, next router.Handler) (*router.Response, error):
		return router.MiddlewareFunc(m), nil
	case func(http.Handler) http.Handler:
		return FromHTTP(m), nil
	default:
		return nil, fmt.Errorf("middleware %q resolved to %T, which is not a middleware", alias, v)
	}
}
