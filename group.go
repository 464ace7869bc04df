package switchyard

import (
	"strings"

	"github.com/iaconlabs/switchyard/definition"
	"github.com/iaconlabs/switchyard/middleware"
	"github.com/iaconlabs/switchyard/strategy"
)

// Group registers child routes under a shared prefix. Conditions and the
// strategy are copied onto each child when it is created; changing them
// later does not affect routes already mapped.
type Group struct {
	methods

	router *Router
	parent *Group

	prefix     string
	conditions Conditions
	strategy   strategy.Strategy
	middleware *middleware.Stack
	definition *definition.Definition
	routes     []*Route
}

func newGroup(rtr *Router, parent *Group, prefix string) *Group {
	g := &Group{
		router:     rtr,
		parent:     parent,
		prefix:     normalizePrefix(prefix),
		middleware: middleware.NewStack(),
		definition: definition.NewDefinition(),
	}
	if parent != nil {
		g.prefix = joinPath(parent.prefix, g.prefix)
		g.conditions = parent.conditions
		g.strategy = parent.strategy
		g.definition.SetParent(parent.definition)
	}
	g.methods = methods{mapFn: g.Map}
	return g
}

// normalizePrefix returns prefix with one leading and no trailing slash.
func normalizePrefix(prefix string) string {
	return "/" + strings.Trim(prefix, "/")
}

// joinPath applies the prefix rule: a child "/" maps to the prefix itself,
// anything else to prefix + "/" + the child without surrounding slashes.
func joinPath(prefix, child string) string {
	if child == "" || child == "/" {
		return prefix
	}
	if prefix == "/" {
		return "/" + strings.Trim(child, "/")
	}
	return prefix + "/" + strings.Trim(child, "/")
}

// Map registers a child route on the router.
func (g *Group) Map(method, path string, handler any) *Route {
	route := newRoute(g.router, method, joinPath(g.prefix, path), handler)
	route.group = g
	route.conditions = g.conditions
	route.strategy = g.strategy
	route.definition.SetParent(g.definition)

	g.routes = append(g.routes, route)
	g.router.add(route)
	return route
}

// Group creates a nested group. Its prefix, conditions, strategy and
// definition fallback derive from g at creation time.
func (g *Group) Group(prefix string, configure func(g *Group)) *Group {
	child := newGroup(g.router, g, prefix)
	if configure != nil {
		configure(child)
	}
	return child
}

// Prefix returns the normalized prefix, parent prefixes included.
func (g *Group) Prefix() string { return g.prefix }

// Routes returns the routes mapped directly on g.
func (g *Group) Routes() []*Route { return append([]*Route(nil), g.routes...) }

// Conditions returns the conditions applied to routes created from now on.
func (g *Group) Conditions() Conditions { return g.conditions }

// Definition returns the fallback definition of the group's routes.
func (g *Group) Definition() *definition.Definition { return g.definition }

// SetHost sets the host condition copied onto routes created from now on.
func (g *Group) SetHost(host string) *Group {
	g.conditions.Host = host
	return g
}

// SetScheme sets the scheme condition copied onto routes created from now on.
func (g *Group) SetScheme(scheme string) *Group {
	g.conditions.Scheme = scheme
	return g
}

// SetPort sets the port condition copied onto routes created from now on.
func (g *Group) SetPort(port string) *Group {
	g.conditions.Port = port
	return g
}

// SetStrategy sets the strategy copied onto routes created from now on.
func (g *Group) SetStrategy(s strategy.Strategy) *Group {
	g.strategy = s
	return g
}

// JSON is the group form of [Route.JSON].
func (g *Group) JSON() *Group {
	return g.SetStrategy(strategy.NewJSON(g.router.responses, g.router.debug))
}

// Middleware appends middleware run for every route of the group, including
// routes mapped before the call.
func (g *Group) Middleware(mws ...any) *Group {
	g.middleware.Push(mws...)
	return g
}

// Describe edits the group's definition in place.
func (g *Group) Describe(fn func(d *definition.Definition)) *Group {
	fn(g.definition)
	return g
}

// chain returns the middleware of g's ancestors and g, outermost first.
func (g *Group) chain() []middleware.Entry {
	if g == nil {
		return nil
	}
	return append(g.parent.chain(), g.middleware.Entries()...)
}
