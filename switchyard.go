// Package switchyard is an in-process HTTP router and dispatch pipeline. It
// matches a request to a registered route, runs the router, group and route
// middleware around it, validates input against the route's parameter
// schema and normalizes the handler's return value into a response.
package switchyard

import (
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/iaconlabs/switchyard/adapter"
	"github.com/iaconlabs/switchyard/httperr"
	"github.com/iaconlabs/switchyard/middleware"
	"github.com/iaconlabs/switchyard/router"
	"github.com/iaconlabs/switchyard/strategy"
	"github.com/iaconlabs/switchyard/validation"
)

const tracerName = "github.com/iaconlabs/switchyard"

// Ensure Router can be mounted on any net/http server.
var _ http.Handler = &Router{}

// Router is the top-level route registry and the dispatch entry point.
// Configure it from a single goroutine, then serve: the route table is
// compiled once on the first dispatch and is read-only afterwards.
type Router struct {
	methods

	logger     *log.Logger
	container  router.Container
	registry   *middleware.Registry
	validator  validation.Validator
	hooks      router.Hooks
	strategy   strategy.Strategy
	responses  router.ResponseFactory
	tracer     trace.Tracer
	debug      bool
	middleware *middleware.Stack

	mu     sync.Mutex
	routes []*Route

	once     sync.Once
	prepared atomic.Bool
	err      error
	table    *adapter.Table

	handler http.Handler
}

// Option configures a [Router].
type Option func(*Router)

// WithLogger sets the logger. The default is [log.Default].
func WithLogger(l *log.Logger) Option {
	return func(rtr *Router) { rtr.logger = l }
}

// WithContainer sets the container used to build handlers and middleware
// referenced by name.
func WithContainer(c router.Container) Option {
	return func(rtr *Router) { rtr.container = c }
}

// WithRegistry sets the middleware alias registry.
func WithRegistry(reg *middleware.Registry) Option {
	return func(rtr *Router) { rtr.registry = reg }
}

// WithValidator sets the validator used by schema validation middleware.
func WithValidator(v validation.Validator) Option {
	return func(rtr *Router) { rtr.validator = v }
}

// WithHooks sets the hook bus.
func WithHooks(h router.Hooks) Option {
	return func(rtr *Router) { rtr.hooks = h }
}

// WithStrategy sets the default response strategy.
func WithStrategy(s strategy.Strategy) Option {
	return func(rtr *Router) { rtr.strategy = s }
}

// WithResponseFactory sets the factory used by strategies and validation.
func WithResponseFactory(f router.ResponseFactory) Option {
	return func(rtr *Router) { rtr.responses = f }
}

// WithTracerProvider sets the OpenTelemetry provider used for dispatch spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(rtr *Router) { rtr.tracer = tp.Tracer(tracerName) }
}

// WithDebug exposes internal error text in error bodies and panic stacks in logs.
func WithDebug(debug bool) Option {
	return func(rtr *Router) { rtr.debug = debug }
}

// New returns a router configured by opts.
func New(opts ...Option) *Router {
	rtr := &Router{middleware: middleware.NewStack()}
	for _, opt := range opts {
		opt(rtr)
	}

	if rtr.logger == nil {
		rtr.logger = log.Default()
	}
	if rtr.responses == nil {
		rtr.responses = router.DefaultResponses
	}
	if rtr.strategy == nil {
		rtr.strategy = strategy.NewApplication(rtr.responses)
	}
	if rtr.validator == nil {
		rtr.validator = validation.New()
	}
	if rtr.tracer == nil {
		rtr.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	if rtr.registry == nil {
		rtr.registry = middleware.NewRegistry(rtr.container)
	} else if rtr.container != nil {
		rtr.registry.SetContainer(rtr.container)
	}

	rtr.methods = methods{mapFn: rtr.Map}
	rtr.handler = Recovery(rtr.logger, rtr.debug)(http.HandlerFunc(rtr.serve))
	return rtr
}

// Map registers a route. The path is normalized to start with "/".
func (rtr *Router) Map(method, path string, handler any) *Route {
	route := newRoute(rtr, method, path, handler)
	rtr.add(route)
	return route
}

func (rtr *Router) add(route *Route) {
	if rtr.prepared.Load() {
		rtr.logger.Warn("route mapped after the router was prepared; it will not be matched",
			"method", route.method, "path", route.path)
	}
	rtr.mu.Lock()
	rtr.routes = append(rtr.routes, route)
	rtr.mu.Unlock()
}

// Group creates a route group and runs configure on it synchronously.
func (rtr *Router) Group(prefix string, configure func(g *Group)) *Group {
	g := newGroup(rtr, nil, prefix)
	if configure != nil {
		configure(g)
	}
	return g
}

// Routes returns every route mapped directly or through groups, in
// registration order.
func (rtr *Router) Routes() []*Route {
	rtr.mu.Lock()
	defer rtr.mu.Unlock()
	return append([]*Route(nil), rtr.routes...)
}

// RoutesByDefinitionType returns the routes whose definition type, resolved
// through the group fallback, equals typ. It prepares the router first.
func (rtr *Router) RoutesByDefinitionType(typ string) ([]*Route, error) {
	if err := rtr.Prepare(); err != nil {
		return nil, err
	}
	var out []*Route
	for _, route := range rtr.Routes() {
		if route.definition.Type() == typ {
			out = append(out, route)
		}
	}
	return out, nil
}

// Middleware appends router-wide middleware, run before group and route middleware.
func (rtr *Router) Middleware(mws ...any) *Router {
	rtr.middleware.Push(mws...)
	return rtr
}

// SetStrategy replaces the default strategy. Routes without their own
// strategy pick it up at dispatch time.
func (rtr *Router) SetStrategy(s strategy.Strategy) *Router {
	rtr.strategy = s
	return rtr
}

// Registry returns the middleware alias registry.
func (rtr *Router) Registry() *middleware.Registry { return rtr.registry }

// Prepare resolves every route definition and compiles the route table. It
// runs once; later calls return the first result.
func (rtr *Router) Prepare() error {
	rtr.once.Do(func() {
		rtr.err = rtr.prepare()
		rtr.prepared.Store(true)
	})
	return rtr.err
}

func (rtr *Router) prepare() error {
	start := time.Now()
	routes := rtr.Routes()
	table := adapter.NewTable()

	var errs []error
	for _, route := range routes {
		if route.parseErr != nil {
			errs = append(errs, fmt.Errorf("route %s: %w", route, route.parseErr))
			continue
		}
		if _, err := route.definition.Params(); err != nil {
			errs = append(errs, fmt.Errorf("route %s: %w", route, err))
			continue
		}
		for _, method := range route.methods() {
			table.Add(method, route.path, route)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("prepare routes: %w", err)
	}
	if err := table.Compile(); err != nil {
		return fmt.Errorf("prepare routes: %w", err)
	}
	rtr.table = table

	rtr.logger.Debug("route table compiled", "routes", len(routes), "entries", table.Len(), "took", time.Since(start))
	router.Call(rtr.hooks, router.HookPrepared, rtr)
	return nil
}

// Dispatch runs the full pipeline for r and returns the response or the
// error that escaped the middleware chain.
func (rtr *Router) Dispatch(r *http.Request) (*router.Response, error) {
	if err := rtr.Prepare(); err != nil {
		return nil, err
	}
	return newDispatcher(rtr).Dispatch(r)
}

// ServeHTTP is the host boundary: panics are recovered and every error is
// rendered with the JSON error body.
func (rtr *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w}
	rtr.handler.ServeHTTP(sw, r)
	router.Call(rtr.hooks, router.HookDispatchCompleted, r, sw.Status(), time.Since(start))
}

func (rtr *Router) serve(w http.ResponseWriter, r *http.Request) {
	resp, err := rtr.Dispatch(r)
	if err != nil {
		status, _, _ := httperr.Format(err, false)
		if status >= http.StatusInternalServerError {
			rtr.logger.Error("dispatch failed", "method", r.Method, "path", r.URL.Path, "error", err)
		} else {
			rtr.logger.Debug("dispatch rejected", "method", r.Method, "path", r.URL.Path, "status", status)
		}
		httperr.Write(w, err, rtr.debug)
		return
	}
	resp.WriteTo(w)
}

// statusWriter records the status written through it.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// methods provides the verb helpers shared by [Router] and [Group].
type methods struct {
	mapFn func(method, path string, handler any) *Route
}

// Get registers a GET route.
func (m methods) Get(path string, h any) *Route { return m.mapFn(http.MethodGet, path, h) }

// Post registers a POST route.
func (m methods) Post(path string, h any) *Route { return m.mapFn(http.MethodPost, path, h) }

// Put registers a PUT route.
func (m methods) Put(path string, h any) *Route { return m.mapFn(http.MethodPut, path, h) }

// Patch registers a PATCH route.
func (m methods) Patch(path string, h any) *Route { return m.mapFn(http.MethodPatch, path, h) }

// Delete registers a DELETE route.
func (m methods) Delete(path string, h any) *Route { return m.mapFn(http.MethodDelete, path, h) }

// Head registers a HEAD route. GET routes already answer HEAD requests.
func (m methods) Head(path string, h any) *Route { return m.mapFn(http.MethodHead, path, h) }

// Options registers an OPTIONS route.
func (m methods) Options(path string, h any) *Route { return m.mapFn(http.MethodOptions, path, h) }

// Any registers path for every standard method.
func (m methods) Any(path string, h any) *Route { return m.mapFn(MethodAny, path, h) }
