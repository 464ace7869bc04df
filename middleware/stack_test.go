package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaconlabs/switchyard/container"
	"github.com/iaconlabs/switchyard/httperr"
	"github.com/iaconlabs/switchyard/middleware"
	"github.com/iaconlabs/switchyard/router"
)

// tagger sets X-Tag on the response produced downstream.
type tagger struct{ tag string }

func (m *tagger) Process(r *http.Request, next router.Handler) (*router.Response, error) {
	resp, err := next.Handle(r)
	if resp != nil {
		resp.Header.Add("X-Tag", m.tag)
	}
	return resp, err
}

func names(s *middleware.Stack) []string {
	var out []string
	for _, e := range s.Entries() {
		out = append(out, e.String())
	}
	return out
}

func TestStack_PushPrependShift(t *testing.T) {
	t.Parallel()

	s := middleware.NewStack("b", "c")
	s.Push("d")
	s.Prepend("x", "a")

	assert.Equal(t, []string{"x", "a", "b", "c", "d"}, names(s))
	assert.Equal(t, 5, s.Len())

	first, ok := s.Shift()
	require.True(t, ok)
	assert.Equal(t, "x", first.Name)
	assert.Equal(t, 4, s.Len())
}

func TestStack_ShiftEmpty(t *testing.T) {
	t.Parallel()

	_, ok := middleware.NewStack().Shift()
	assert.False(t, ok)
}

func TestStack_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	base := middleware.NewStack("a", "b")
	clone := base.Clone()
	clone.Shift()
	clone.Push("c")

	assert.Equal(t, []string{"a", "b"}, names(base))
	assert.Equal(t, []string{"b", "c"}, names(clone))

	var nilStack *middleware.Stack
	assert.Equal(t, 0, nilStack.Clone().Len())
}

func TestStack_AcceptedShapes(t *testing.T) {
	t.Parallel()

	s := middleware.NewStack(
		&tagger{tag: "instance"},
		func(r *http.Request, next router.Handler) (*router.Response, error) { return next.Handle(r) },
		func(h http.Handler) http.Handler { return h },
		middleware.Alias("throttle", 60),
	)

	entries := s.Entries()
	require.Len(t, entries, 4)
	for _, e := range entries[:3] {
		assert.NotNil(t, e.Instance)
	}
	assert.Equal(t, "throttle", entries[3].Name)
	assert.Equal(t, []any{60}, entries[3].Args)

	assert.Panics(t, func() { middleware.NewStack(42) })
}

func TestRegistry_WriteOnce(t *testing.T) {
	t.Parallel()

	c := container.New().
		Bind("FirstAuth", func(...any) (any, error) { return &tagger{tag: "first"}, nil }).
		Bind("SecondAuth", func(...any) (any, error) { return &tagger{tag: "second"}, nil })
	reg := middleware.NewRegistry(c)

	assert.True(t, reg.Register("FirstAuth", "auth", "app"))
	assert.False(t, reg.Register("SecondAuth", "auth"))

	entry, ok := reg.Lookup("auth")
	require.True(t, ok)
	assert.Equal(t, middleware.Registration{Concrete: "FirstAuth", Alias: "auth", Origin: "app"}, entry)

	mw, err := reg.Make("auth")
	require.NoError(t, err)
	assert.Equal(t, "first", mw.(*tagger).tag)
}

func TestRegistry_DefaultOrigin(t *testing.T) {
	t.Parallel()

	reg := middleware.NewRegistry(nil)
	reg.Register("Throttle", "throttle")
	reg.Register("Cors", "cors")

	assert.Equal(t, []middleware.Registration{
		{Concrete: "Cors", Alias: "cors", Origin: middleware.DefaultOrigin},
		{Concrete: "Throttle", Alias: "throttle", Origin: middleware.DefaultOrigin},
	}, reg.Registrations())
}

func TestRegistry_ContainerNameWins(t *testing.T) {
	t.Parallel()

	c := container.New().
		Bind("auth", func(...any) (any, error) { return &tagger{tag: "direct"}, nil }).
		Bind("Auth", func(...any) (any, error) { return &tagger{tag: "registered"}, nil })
	reg := middleware.NewRegistry(c)
	reg.Register("Auth", "auth")

	mw, err := reg.Make("auth")
	require.NoError(t, err)
	assert.Equal(t, "direct", mw.(*tagger).tag)
}

func TestRegistry_MakePassesArgs(t *testing.T) {
	t.Parallel()

	c := container.New().Bind("Tag", func(params ...any) (any, error) {
		return &tagger{tag: params[0].(string)}, nil
	})
	reg := middleware.NewRegistry(c)
	reg.Register("Tag", "tag")

	mw, built, err := reg.Resolve(middleware.Alias("tag", "v1"))
	require.NoError(t, err)
	assert.True(t, built)
	assert.Equal(t, "v1", mw.(*tagger).tag)

	inst := &tagger{tag: "ready"}
	mw, built, err = reg.Resolve(middleware.EntryOf(inst))
	require.NoError(t, err)
	assert.False(t, built)
	assert.Same(t, inst, mw)
}

func TestRegistry_NotFound(t *testing.T) {
	t.Parallel()

	reg := middleware.NewRegistry(container.New())

	_, err := reg.Make("ghost")
	require.ErrorIs(t, err, httperr.ErrMiddlewareNotFound)

	var rerr *httperr.MiddlewareResolutionError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "ghost", rerr.Alias)
}

func TestRegistry_RejectsNonMiddleware(t *testing.T) {
	t.Parallel()

	c := container.New().Instance("Weird", 42)
	reg := middleware.NewRegistry(c)
	reg.Register("Weird", "weird")

	_, err := reg.Make("weird")
	require.Error(t, err)
	assert.NotErrorIs(t, err, httperr.ErrMiddlewareNotFound)
}

func TestFromHTTP_MergesHeaders(t *testing.T) {
	t.Parallel()

	mw := middleware.FromHTTP(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Powered-By", "switchyard")
			next.ServeHTTP(w, r)
		})
	})

	resp, err := mw.Process(httptest.NewRequest(http.MethodGet, "/", nil), router.HandlerFunc(
		func(*http.Request) (*router.Response, error) {
			resp := router.NewResponse(http.StatusCreated)
			resp.Body = []byte("made")
			return resp, nil
		}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "switchyard", resp.Header.Get("X-Powered-By"))
	assert.Equal(t, "made", string(resp.Body))
}

func TestFromHTTP_ShortCircuit(t *testing.T) {
	t.Parallel()

	mw := middleware.FromHTTP(func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusUnauthorized)
		})
	})

	called := false
	resp, err := mw.Process(httptest.NewRequest(http.MethodGet, "/", nil), router.HandlerFunc(
		func(*http.Request) (*router.Response, error) {
			called = true
			return nil, nil
		}))
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
}

func TestFromHTTP_PropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	mw := middleware.FromHTTP(func(h http.Handler) http.Handler { return h })

	resp, err := mw.Process(httptest.NewRequest(http.MethodGet, "/", nil), router.HandlerFunc(
		func(*http.Request) (*router.Response, error) { return nil, boom }))
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, boom)
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var seen string
	next := router.HandlerFunc(func(r *http.Request) (*router.Response, error) {
		seen = middleware.RequestIDFrom(r)
		return router.NewResponse(http.StatusOK), nil
	})

	t.Run("generates", func(t *testing.T) {
		resp, err := middleware.RequestID().Process(httptest.NewRequest(http.MethodGet, "/", nil), next)
		require.NoError(t, err)
		_, perr := uuid.Parse(seen)
		require.NoError(t, perr)
		assert.Equal(t, seen, resp.Header.Get(middleware.HeaderRequestID))
	})

	t.Run("keeps incoming", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.HeaderRequestID, "abc-123")

		resp, err := middleware.RequestID().Process(req, next)
		require.NoError(t, err)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", resp.Header.Get(middleware.HeaderRequestID))
	})
}
