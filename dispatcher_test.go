package switchyard

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaconlabs/switchyard/definition"
	"github.com/iaconlabs/switchyard/middleware"
	"github.com/iaconlabs/switchyard/router"
	"github.com/iaconlabs/switchyard/strategy"
)

type named string

func (n named) Process(r *http.Request, next router.Handler) (*router.Response, error) {
	return next.Handle(r)
}

func noop(*http.Request) (any, error) { return "ok", nil }

func resolved(t *testing.T, rtr *Router, method, target string) (*Dispatcher, *http.Request) {
	t.Helper()
	require.NoError(t, rtr.Prepare())
	d := newDispatcher(rtr)
	r, throwable, err := d.resolve(httptest.NewRequest(method, target, nil))
	require.NoError(t, err)
	require.NotNil(t, throwable)
	return d, r
}

func TestDispatcher_FoundStackOrder(t *testing.T) {
	t.Parallel()

	rtr := New()
	rtr.Middleware(named("router"))
	rtr.Group("/api", func(g *Group) {
		g.Middleware(named("group"))
		g.Group("/v1", func(g *Group) {
			g.Middleware(named("nested"))
			g.Get("/items/{id}", noop).
				Middleware(named("route")).
				Describe(func(d *definition.Definition) { d.Param("q", "string") })
		})
	})

	d, r := resolved(t, rtr, http.MethodGet, "/api/v1/items/5")
	assert.Equal(t, Found, d.Outcome())

	entries := d.stack.Entries()
	require.Len(t, entries, 6)
	assert.Equal(t, named("router"), entries[0].Instance)
	assert.Equal(t, named("group"), entries[1].Instance)
	assert.Equal(t, named("nested"), entries[2].Instance)
	assert.Equal(t, named("route"), entries[3].Instance)
	assert.IsType(t, &middleware.Validation{}, entries[4].Instance)
	assert.Same(t, d.Route(), entries[5].Instance)

	assert.Equal(t, "5", router.Param(r, "id"))
	assert.Same(t, d.Route(), router.CurrentRoute(r))
	assert.Equal(t, map[string][]string{"q": nil}, entries[4].Instance.(*middleware.Validation).Rules())
}

func TestDispatcher_EmptySchemaRunsOnlyRoute(t *testing.T) {
	t.Parallel()

	rtr := New()
	rtr.Get("/plain", noop)

	d, _ := resolved(t, rtr, http.MethodGet, "/plain")
	entries := d.stack.Entries()
	require.Len(t, entries, 1)
	assert.Same(t, d.Route(), entries[0].Instance)
}

func TestDispatcher_BindsCopy(t *testing.T) {
	t.Parallel()

	rtr := New()
	registered := rtr.Get("/users/{id}", noop)

	d1, _ := resolved(t, rtr, http.MethodGet, "/users/1")
	d2, _ := resolved(t, rtr, http.MethodGet, "/users/2")

	assert.NotSame(t, registered, d1.Route())
	assert.Equal(t, "1", d1.Route().Var("id"))
	assert.Equal(t, "2", d2.Route().Var("id"))
	assert.Empty(t, registered.Var("id"))
}

func TestDispatcher_FailureDecorators(t *testing.T) {
	t.Parallel()

	rtr := New()
	rtr.Get("/only-get", noop)
	rtr.Get("/secure", noop).SetScheme("https")

	d, _ := resolved(t, rtr, http.MethodGet, "/missing")
	assert.Equal(t, NotFound, d.Outcome())
	assert.Equal(t, 1, d.stack.Len())
	assert.Nil(t, d.Route())

	d, _ = resolved(t, rtr, http.MethodDelete, "/only-get")
	assert.Equal(t, MethodNotAllowed, d.Outcome())
	assert.Equal(t, 1, d.stack.Len())

	d, _ = resolved(t, rtr, http.MethodGet, "/secure")
	assert.Equal(t, NotFound, d.Outcome(), "condition mismatch degrades to not found")
}

func TestDispatcher_ThrowableFollowsRouteStrategy(t *testing.T) {
	t.Parallel()

	rtr := New()
	rtr.Get("/json", noop).JSON()

	require.NoError(t, rtr.Prepare())
	d := newDispatcher(rtr)
	_, throwable, err := d.resolve(httptest.NewRequest(http.MethodGet, "/json", nil))
	require.NoError(t, err)
	assert.IsType(t, &strategy.JSON{}, d.Route().Strategy())
	assert.NotNil(t, throwable)
}

func TestDispatcher_EmptyStack(t *testing.T) {
	t.Parallel()

	rtr := New()
	require.NoError(t, rtr.Prepare())

	_, err := newDispatcher(rtr).Handle(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorContains(t, err, "reached end of middleware stack")
}

func TestParseHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler any
		kind    HandlerKind
		typ     string
		method  string
		wantErr bool
	}{
		{"closure", noop, Closure, "", "", false},
		{"controller func", router.ControllerFunc(noop), Closure, "", "", false},
		{"method ref", "Users::Show", MethodRef, "Users", "Show", false},
		{"invokable", "Users", InvokableType, "Users", "Invoke", false},
		{"http handler", http.NotFoundHandler(), HandlerObject, "", "", false},
		{"handler func literal", func(http.ResponseWriter, *http.Request) {}, HandlerObject, "", "", false},
		{"empty string", "", Closure, "", "", true},
		{"dangling ref", "Users::", Closure, "", "", true},
		{"number", 3, Closure, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHandler(tt.handler)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidHandler)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.typ, got.Type)
			assert.Equal(t, tt.method, got.Method)
		})
	}
}

func TestConditions_Matches(t *testing.T) {
	t.Parallel()

	plain := httptest.NewRequest(http.MethodGet, "http://api.example.com/x", nil)
	secure := httptest.NewRequest(http.MethodGet, "/x", nil)
	secure.Host = "api.example.com"
	secure.TLS = &tls.ConnectionState{}

	assert.True(t, Conditions{}.Matches(plain))
	assert.True(t, Conditions{Host: "API.example.com"}.Matches(plain))
	assert.False(t, Conditions{Host: "www.example.com"}.Matches(plain))
	assert.True(t, Conditions{Port: "80"}.Matches(plain))
	assert.False(t, Conditions{Scheme: "https"}.Matches(plain))
	assert.True(t, Conditions{Scheme: "https", Port: "443"}.Matches(secure))
}
