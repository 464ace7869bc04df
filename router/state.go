package router

import (
	"bytes"
	"context"
	"io"
	"maps"
	"net/http"
)

// State centralizes request metadata such as route variables and the cached
// request body to avoid redundant context allocations.
type State struct {
	// Params holds the route variables of the matched route.
	Params map[string]string
	// Body stores a cached copy of the request body for multiple reads.
	Body []byte
	// bodyRead records that Body reflects the request body, even when empty.
	bodyRead bool
}

// RequestState returns the state attached to r, if any.
func RequestState(r *http.Request) (*State, bool) {
	state, ok := r.Context().Value(StateKey).(*State)
	return state, ok
}

// WithState returns a shallow copy of r carrying state.
func WithState(r *http.Request, state *State) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), StateKey, state))
}

// SetStateValue stores a route variable. The params map is copied so requests
// derived earlier keep observing their own values.
func SetStateValue(r *http.Request, key, value string) *http.Request {
	next := &State{Params: map[string]string{}}
	if state, ok := RequestState(r); ok {
		next.Params = maps.Clone(state.Params)
		if next.Params == nil {
			next.Params = map[string]string{}
		}
		next.Body, next.bodyRead = state.Body, state.bodyRead
	}
	next.Params[key] = value
	return WithState(r, next)
}

// DeleteStateValue removes a route variable. A request without state is
// returned unchanged.
func DeleteStateValue(r *http.Request, key string) *http.Request {
	state, ok := RequestState(r)
	if !ok {
		return r
	}
	next := &State{Params: maps.Clone(state.Params), Body: state.Body, bodyRead: state.bodyRead}
	delete(next.Params, key)
	return WithState(r, next)
}

// Param returns the route variable key, or "" when absent.
func Param(r *http.Request, key string) string {
	state, ok := RequestState(r)
	if !ok || state.Params == nil {
		return ""
	}
	return state.Params[key]
}

// Body reads the request body once, caches it in the request state and
// restores r.Body so later readers see the full payload.
func Body(r *http.Request) ([]byte, *http.Request, error) {
	if state, ok := RequestState(r); ok && state.bodyRead {
		r.Body = io.NopCloser(bytes.NewReader(state.Body))
		return state.Body, r, nil
	}

	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, r, err
		}
		body = b
	}

	next := &State{Params: map[string]string{}, Body: body, bodyRead: true}
	if state, ok := RequestState(r); ok {
		next.Params = state.Params
	}
	r = WithState(r, next)
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, r, nil
}

// WithValidated stores the validated input on the request.
func WithValidated(r *http.Request, data map[string]any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ValidationKey, data))
}

// Validated returns the input stored by the validation middleware.
func Validated(r *http.Request) (map[string]any, bool) {
	data, ok := r.Context().Value(ValidationKey).(map[string]any)
	return data, ok
}

// WithRoute stores the matched route on the request.
func WithRoute(r *http.Request, route any) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), RouteKey, route))
}

// CurrentRoute returns the route stored by [WithRoute].
func CurrentRoute(r *http.Request) any {
	return r.Context().Value(RouteKey)
}
