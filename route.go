package switchyard

import (
	"errors"
	"fmt"
	"maps"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/iaconlabs/switchyard/definition"
	"github.com/iaconlabs/switchyard/httperr"
	"github.com/iaconlabs/switchyard/middleware"
	"github.com/iaconlabs/switchyard/router"
	"github.com/iaconlabs/switchyard/strategy"
)

// MethodAny registers a route for every standard method.
const MethodAny = "*"

var anyMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

var (
	// ErrInvalidHandler is reported by Prepare for handlers of unsupported shape.
	ErrInvalidHandler = errors.New("invalid route handler")
	// ErrNoContainer is returned when a handler references a type by name
	// and the router has no container.
	ErrNoContainer = errors.New("handler references a type but no container is configured")
)

// HandlerKind classifies a route handler.
type HandlerKind int

const (
	// Closure is a function handler.
	Closure HandlerKind = iota
	// MethodRef is a "Type::Method" reference built through the container.
	MethodRef
	// InvokableType is a bare type name built through the container and invoked.
	InvokableType
	// HandlerObject is a ready router.Controller or http.Handler.
	HandlerObject
)

func (k HandlerKind) String() string {
	switch k {
	case MethodRef:
		return "method_ref"
	case InvokableType:
		return "invokable_type"
	case HandlerObject:
		return "object"
	default:
		return "closure"
	}
}

// ParsedHandler is the classified form of a route handler.
type ParsedHandler struct {
	Kind   HandlerKind
	Func   router.ControllerFunc
	Type   string
	Method string
	Object any
}

func parseHandler(h any) (ParsedHandler, error) {
	switch v := h.(type) {
	case string:
		if v == "" {
			return ParsedHandler{}, fmt.Errorf("%w: empty type name", ErrInvalidHandler)
		}
		if typ, method, ok := strings.Cut(v, "::"); ok {
			if typ == "" || method == "" {
				return ParsedHandler{}, fmt.Errorf("%w: %q", ErrInvalidHandler, v)
			}
			return ParsedHandler{Kind: MethodRef, Type: typ, Method: method}, nil
		}
		return ParsedHandler{Kind: InvokableType, Type: v, Method: "Invoke"}, nil
	case router.ControllerFunc:
		return ParsedHandler{Kind: Closure, Func: v}, nil
	case func(*http.Request) (any, error):
		return ParsedHandler{Kind: Closure, Func: v}, nil
	case func(http.ResponseWriter, *http.Request):
		return ParsedHandler{Kind: HandlerObject, Object: http.HandlerFunc(v)}, nil
	case router.Controller, http.Handler:
		return ParsedHandler{Kind: HandlerObject, Object: v}, nil
	default:
		return ParsedHandler{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidHandler, h)
	}
}

// Conditions restrict a route beyond method and path. Empty fields match anything.
type Conditions struct {
	Host   string
	Scheme string
	Port   string
}

// Matches reports whether r satisfies every set condition.
func (c Conditions) Matches(r *http.Request) bool {
	host, port := splitHostPort(r.Host)
	scheme := requestScheme(r)
	if port == "" {
		port = map[string]string{"http": "80", "https": "443"}[scheme]
	}

	if c.Host != "" && !strings.EqualFold(c.Host, host) {
		return false
	}
	if c.Scheme != "" && !strings.EqualFold(c.Scheme, scheme) {
		return false
	}
	return c.Port == "" || c.Port == port
}

func splitHostPort(hostport string) (string, string) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return hostport, ""
	}
	return host, port
}

func requestScheme(r *http.Request) string {
	if r.URL != nil && r.URL.Scheme != "" {
		return strings.ToLower(r.URL.Scheme)
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Route is one method+path registration. Routes are configured before the
// router is prepared; during dispatch each match works on a bound copy that
// carries the request's path variables.
type Route struct {
	router *Router
	group  *Group // non-owning, used for fallback only

	method     string
	path       string
	name       string
	handler    any
	parsed     ParsedHandler
	parseErr   error
	middleware *middleware.Stack
	strategy   strategy.Strategy
	conditions Conditions
	definition *definition.Definition

	vars map[string]string
}

func newRoute(rt *Router, method, path string, handler any) *Route {
	parsed, err := parseHandler(handler)
	return &Route{
		router:     rt,
		method:     strings.ToUpper(method),
		path:       normalizePath(path),
		handler:    handler,
		parsed:     parsed,
		parseErr:   err,
		middleware: middleware.NewStack(),
		definition: definition.NewDefinition(),
	}
}

func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/") {
		return "/" + path
	}
	return path
}

// bind returns a copy of the route carrying vars.
func (rt *Route) bind(vars map[string]string) *Route {
	bound := *rt
	bound.vars = maps.Clone(vars)
	return &bound
}

// Method returns the HTTP method, or [MethodAny].
func (rt *Route) Method() string { return rt.method }

// Path returns the full path pattern, group prefixes included.
func (rt *Route) Path() string { return rt.path }

// Name returns the name set with SetName.
func (rt *Route) Name() string { return rt.name }

// Handler returns the handler as it was mapped.
func (rt *Route) Handler() any { return rt.handler }

// Group returns the group that created the route, or nil.
func (rt *Route) Group() *Group { return rt.group }

// ParsedHandler returns the classification made when the route was mapped.
func (rt *Route) ParsedHandler() ParsedHandler { return rt.parsed }

// Conditions returns the host, scheme and port restrictions.
func (rt *Route) Conditions() Conditions { return rt.conditions }

// Definition returns the route's definition. Its parent is the group's definition.
func (rt *Route) Definition() *definition.Definition { return rt.definition }

// Vars returns the path variables of the current match. They are only set on
// the route bound to a dispatch.
func (rt *Route) Vars() map[string]string { return maps.Clone(rt.vars) }

// Var returns one path variable.
func (rt *Route) Var(key string) string { return rt.vars[key] }

// MiddlewareStack returns a copy of the route's own middleware.
func (rt *Route) MiddlewareStack() *middleware.Stack { return rt.middleware.Clone() }

// Strategy returns the route's strategy, falling back to the router's.
func (rt *Route) Strategy() strategy.Strategy {
	if rt.strategy != nil {
		return rt.strategy
	}
	return rt.router.strategy
}

// SetName names the route.
func (rt *Route) SetName(name string) *Route {
	rt.name = name
	return rt
}

// Middleware appends middleware run after the router and group middleware.
func (rt *Route) Middleware(mws ...any) *Route {
	rt.middleware.Push(mws...)
	return rt
}

// PrependMiddleware inserts middleware ahead of the route's existing middleware.
func (rt *Route) PrependMiddleware(mws ...any) *Route {
	rt.middleware.Prepend(mws...)
	return rt
}

// SetStrategy overrides the response strategy.
func (rt *Route) SetStrategy(s strategy.Strategy) *Route {
	rt.strategy = s
	return rt
}

// JSON renders every outcome of the route as JSON.
func (rt *Route) JSON() *Route {
	return rt.SetStrategy(strategy.NewJSON(rt.router.responses, rt.router.debug))
}

// SetHost restricts the route to a host, compared case-insensitively.
func (rt *Route) SetHost(host string) *Route {
	rt.conditions.Host = host
	return rt
}

// SetScheme restricts the route to a scheme.
func (rt *Route) SetScheme(scheme string) *Route {
	rt.conditions.Scheme = scheme
	return rt
}

// SetPort restricts the route to a port. Requests without an explicit port
// use the scheme's default.
func (rt *Route) SetPort(port string) *Route {
	rt.conditions.Port = port
	return rt
}

// SetDefinition replaces the definition. The group fallback is kept unless
// d already has a parent. A nil d resets the route to an empty definition.
func (rt *Route) SetDefinition(d *definition.Definition) *Route {
	if d == nil {
		d = definition.NewDefinition()
	}
	if d.Parent() == nil && rt.group != nil {
		d.SetParent(rt.group.definition)
	}
	rt.definition = d
	return rt
}

// Describe edits the route's definition in place.
func (rt *Route) Describe(fn func(d *definition.Definition)) *Route {
	fn(rt.definition)
	return rt
}

// String returns "METHOD /path".
func (rt *Route) String() string {
	return rt.method + " " + rt.path
}

// methods lists the concrete methods the route is compiled for.
func (rt *Route) methods() []string {
	if rt.method == MethodAny {
		return anyMethods
	}
	return []string{rt.method}
}

// Process runs the route as the terminal middleware of a dispatch.
func (rt *Route) Process(r *http.Request, _ router.Handler) (*router.Response, error) {
	ctrl, err := rt.controller()
	if err != nil {
		return nil, err
	}
	return rt.Strategy().InvokeRoute(ctrl, r)
}

// controller resolves the handler into something the strategy can invoke.
// Instances built through the container receive the bound route when they
// implement router.RouteAware.
func (rt *Route) controller() (router.Controller, error) {
	switch rt.parsed.Kind {
	case Closure:
		return rt.parsed.Func, nil
	case HandlerObject:
		return asController(rt.parsed.Object)
	}

	c := rt.router.container
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoContainer, rt.parsed.Type)
	}
	inst, err := c.Make(rt.parsed.Type)
	if err != nil {
		return nil, fmt.Errorf("build handler %s: %w", rt.parsed.Type, err)
	}
	if aware, ok := inst.(router.RouteAware); ok {
		aware.SetRoute(rt)
	}

	if rt.parsed.Kind == InvokableType {
		return asController(inst)
	}
	return methodController(inst, rt.parsed.Type, rt.parsed.Method)
}

func asController(v any) (router.Controller, error) {
	switch h := v.(type) {
	case router.Controller:
		return h, nil
	case http.Handler:
		return router.ControllerFunc(func(r *http.Request) (any, error) {
			resp := middleware.ServeResponse(h, r)
			if resp == nil {
				return nil, httperr.ErrHandlerReturnedNothing
			}
			return resp, nil
		}), nil
	default:
		return nil, fmt.Errorf("%w: %T is not invokable", ErrInvalidHandler, v)
	}
}

func methodController(inst any, typ, method string) (router.Controller, error) {
	m := reflect.ValueOf(inst).MethodByName(method)
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %s has no method %s", ErrInvalidHandler, typ, method)
	}
	fn, ok := m.Interface().(func(*http.Request) (any, error))
	if !ok {
		return nil, fmt.Errorf("%w: %s::%s has signature %s", ErrInvalidHandler, typ, method, m.Type())
	}
	return router.ControllerFunc(fn), nil
}
