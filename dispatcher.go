package switchyard

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iaconlabs/switchyard/adapter"
	"github.com/iaconlabs/switchyard/httperr"
	"github.com/iaconlabs/switchyard/middleware"
	"github.com/iaconlabs/switchyard/router"
)

// Outcome is the state a dispatch resolved to.
type Outcome = adapter.Outcome

const (
	Unresolved       = adapter.Unresolved
	NotFound         = adapter.NotFound
	MethodNotAllowed = adapter.MethodNotAllowed
	Found            = adapter.Found
)

// Dispatcher runs one request. It starts Unresolved, matches the request
// against the compiled table, assembles the working middleware stack for the
// outcome and then acts as the chain's next handler. A Dispatcher is used
// for a single request and discarded.
type Dispatcher struct {
	router  *Router
	stack   *middleware.Stack
	outcome Outcome
	route   *Route
}

func newDispatcher(rtr *Router) *Dispatcher {
	return &Dispatcher{router: rtr, stack: rtr.middleware.Clone()}
}

// Outcome returns the resolved state.
func (d *Dispatcher) Outcome() Outcome { return d.outcome }

// Route returns the bound route when the outcome is Found.
func (d *Dispatcher) Route() *Route { return d.route }

// Dispatch matches r, assembles the stack and runs it.
func (d *Dispatcher) Dispatch(r *http.Request) (*router.Response, error) {
	rtr := d.router
	ctx, span := rtr.tracer.Start(r.Context(), "switchyard.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		),
	)
	defer span.End()
	r = r.WithContext(ctx)

	r, throwable, err := d.resolve(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	d.stack.Prepend(throwable)

	pattern := ""
	if d.route != nil {
		pattern = d.route.path
		span.SetAttributes(attribute.String("http.route", pattern))
	}
	span.SetAttributes(attribute.String("switchyard.outcome", d.outcome.String()))
	rtr.logger.Debug("dispatch resolved", "method", r.Method, "path", r.URL.Path,
		"outcome", d.outcome.String(), "route", pattern)
	router.Call(rtr.hooks, router.HookDispatchResolved, r, d.outcome, pattern)

	resp, err := d.Handle(r)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", statusOf(resp)))
	return resp, nil
}

// resolve moves the dispatcher out of Unresolved and fills the working
// stack. It returns the request carrying route state and the outermost
// error boundary for the outcome.
func (d *Dispatcher) resolve(r *http.Request) (*http.Request, router.Middleware, error) {
	rtr := d.router
	m, err := rtr.table.Match(r.Method, r.URL.Path)
	if err != nil {
		return r, nil, err
	}

	switch m.Outcome {
	case adapter.MethodNotAllowed:
		d.outcome = MethodNotAllowed
		d.stack.Prepend(rtr.strategy.MethodNotAllowedDecorator(httperr.MethodNotAllowed(m.Allowed)))
		return r, rtr.strategy.ThrowableHandler(), nil
	case adapter.Found:
		route := m.Value.(*Route).bind(m.Vars)
		if route.conditions.Matches(r) {
			d.outcome, d.route = Found, route
			return d.found(r, route)
		}
	}

	d.outcome = NotFound
	d.stack.Prepend(rtr.strategy.NotFoundDecorator(httperr.NotFound()))
	return r, rtr.strategy.ThrowableHandler(), nil
}

// found pushes group middleware, route middleware, schema validation and
// finally the route itself.
func (d *Dispatcher) found(r *http.Request, route *Route) (*http.Request, router.Middleware, error) {
	rtr := d.router

	for _, e := range route.group.chain() {
		d.stack.Push(e)
	}
	for _, e := range route.middleware.Entries() {
		d.stack.Push(e)
	}

	params, err := route.definition.Params()
	if err != nil {
		return r, nil, err
	}
	if len(params) > 0 {
		d.stack.Push(middleware.NewValidation(rtr.validator,
			middleware.WithParams(params...),
			middleware.WithResponseFactory(rtr.responses),
			middleware.WithHooks(rtr.hooks),
		))
	}
	d.stack.Push(route)

	r = router.WithRoute(r, route)
	for k, v := range route.vars {
		r = router.SetStateValue(r, k, v)
	}
	return r, route.Strategy().ThrowableHandler(), nil
}

// Handle shifts the next middleware off the working stack and runs it with
// the dispatcher as its next handler. Aliases are resolved here, lazily.
func (d *Dispatcher) Handle(r *http.Request) (*router.Response, error) {
	e, ok := d.stack.Shift()
	if !ok {
		return nil, httperr.ErrHandlerReturnedNothing
	}

	mw, built, err := d.router.registry.Resolve(e)
	if err != nil {
		return nil, err
	}
	if aware, ok := mw.(router.RouteAware); ok && built && d.route != nil {
		aware.SetRoute(d.route)
	}

	resp, err := mw.Process(r, d)
	if err == nil && resp == nil {
		return nil, httperr.ErrHandlerReturnedNothing
	}
	return resp, err
}

func statusOf(resp *router.Response) int {
	if resp.Status == 0 {
		return http.StatusOK
	}
	return resp.Status
}
