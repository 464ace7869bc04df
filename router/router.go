// Package router defines the core contracts and context keys shared by the
// switchyard dispatcher, its middleware and the collaborators it consumes.
package router

import (
	"net/http"
)

// ctxKey is a private type for context keys to avoid collisions with other packages.
type ctxKey string

const (
	// StateKey provides access to the [State] struct containing normalized request data.
	StateKey ctxKey = "___switchyard_state___"
	// RouteKey identifies the route that matched the current request.
	RouteKey ctxKey = "___switchyard_route___"
	// ValidationKey stores the validated (and coerced) input after the validation middleware ran.
	ValidationKey ctxKey = "___switchyard_validated___"
)

// Handler processes a request and produces a response. The dispatcher itself
// is a Handler: calling it runs the next middleware in the working stack.
type Handler interface {
	Handle(r *http.Request) (*Response, error)
}

// HandlerFunc adapts an ordinary function to the [Handler] interface.
type HandlerFunc func(r *http.Request) (*Response, error)

// Handle calls f(r).
func (f HandlerFunc) Handle(r *http.Request) (*Response, error) {
	return f(r)
}

// Middleware is one unit of the request-processing chain. It either produces
// a response on its own or delegates to next.
type Middleware interface {
	Process(r *http.Request, next Handler) (*Response, error)
}

// MiddlewareFunc adapts an ordinary function to the [Middleware] interface.
type MiddlewareFunc func(r *http.Request, next Handler) (*Response, error)

// Process calls f(r, next).
func (f MiddlewareFunc) Process(r *http.Request, next Handler) (*Response, error) {
	return f(r, next)
}

// Controller is an invokable route handler. The returned value is normalized
// into a [Response] by the route's strategy.
type Controller interface {
	Invoke(r *http.Request) (any, error)
}

// ControllerFunc adapts an ordinary function to the [Controller] interface.
type ControllerFunc func(r *http.Request) (any, error)

// Invoke calls f(r).
func (f ControllerFunc) Invoke(r *http.Request) (any, error) {
	return f(r)
}

// RouteAware is implemented by controllers and middleware that want to know
// which route matched. The value passed is the per-dispatch bound route.
type RouteAware interface {
	SetRoute(route any)
}

// Container is the service locator consumed by the router to build
// controllers and middleware referenced by name.
type Container interface {
	// Get returns a shared instance of the named type.
	Get(name string, params ...any) (any, error)
	// Make builds a fresh instance of the named type.
	Make(name string, params ...any) (any, error)
	// Has reports whether name can be resolved.
	Has(name string) bool
}

// Hooks is the optional notification bus. A nil Hooks is valid; use [Call]
// and [Query] to invoke it safely.
type Hooks interface {
	// Call notifies every listener of tag. Listeners have no return contract.
	Call(tag string, args ...any)
	// Query passes value through every filter registered for tag and returns the result.
	Query(tag string, value any, args ...any) any
}

// Hook tags fired by the router and dispatcher.
const (
	// HookPrepared is called once the route table is compiled, with the router.
	HookPrepared = "router.prepared"
	// HookDispatchResolved is called after matching, with the request, the
	// match outcome and the matched pattern ("" unless found).
	HookDispatchResolved = "dispatch.resolved"
	// HookDispatchCompleted is called by ServeHTTP after the response is
	// written, with the request, the status and the elapsed time.
	HookDispatchCompleted = "dispatch.completed"
)

// Call invokes h.Call when h is not nil.
func Call(h Hooks, tag string, args ...any) {
	if h != nil {
		h.Call(tag, args...)
	}
}

// Query invokes h.Query when h is not nil, otherwise it returns value unchanged.
func Query(h Hooks, tag string, value any, args ...any) any {
	if h == nil {
		return value
	}
	return h.Query(tag, value, args...)
}
