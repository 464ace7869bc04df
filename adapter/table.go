// Package adapter compiles registered routes into a go-chi tree and answers
// the match questions the dispatcher asks: not found, method not allowed, or
// found with the path variables.
package adapter

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/go-chi/chi/v5"
)

// ErrDuplicateRoute is returned by [Table.Compile] when a method and pattern
// are registered twice.
var ErrDuplicateRoute = errors.New("duplicate route")

// ErrNotCompiled is returned by [Table.Match] before [Table.Compile] succeeded.
var ErrNotCompiled = errors.New("route table is not compiled")

// Outcome is the result class of a match.
type Outcome int

const (
	Unresolved Outcome = iota
	NotFound
	MethodNotAllowed
	Found
)

func (o Outcome) String() string {
	switch o {
	case NotFound:
		return "not_found"
	case MethodNotAllowed:
		return "method_not_allowed"
	case Found:
		return "found"
	default:
		return "unresolved"
	}
}

// Match is the answer of [Table.Match]. Value and Vars are set for Found,
// Allowed for MethodNotAllowed.
type Match struct {
	Outcome Outcome
	Value   any
	Pattern string
	Vars    map[string]string
	Allowed []string
}

type entry struct {
	method   string
	path     string
	pattern  string
	wildcard string
	value    any
}

// Table is a compiled route table. Routes are added during configuration;
// after Compile the table is immutable and safe for concurrent matching.
type Table struct {
	mu       sync.RWMutex
	entries  []entry
	mux      *chi.Mux
	byKey    map[string]entry
	methods  []string
	compiled bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{byKey: map[string]entry{}}
}

// Add registers value under method and path. Paths accept chi placeholders
// ({id}, {id:[0-9]+}), colon placeholders (:id) and a trailing catch-all (*path).
func (t *Table) Add(method, path string, value any) {
	pattern, wildcard := TranslatePath(path)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry{method: method, path: path, pattern: pattern, wildcard: wildcard, value: value})
	t.compiled = false
}

// Len returns the number of registered entries.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Compile builds the chi tree. chi panics on malformed patterns; those
// panics are returned as errors.
func (t *Table) Compile() (err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("compile route table: %v", rec)
		}
	}()

	mux := chi.NewRouter()
	byKey := make(map[string]entry, len(t.entries))
	var methods []string

	for _, e := range t.entries {
		key := e.method + " " + e.pattern
		if prev, dup := byKey[key]; dup {
			return fmt.Errorf("%w: %s %s (already registered as %s)", ErrDuplicateRoute, e.method, e.path, prev.path)
		}
		byKey[key] = e

		if !isStandardMethod(e.method) {
			chi.RegisterMethod(e.method)
		}
		if !slices.Contains(methods, e.method) {
			methods = append(methods, e.method)
		}
		mux.MethodFunc(e.method, e.pattern, func(http.ResponseWriter, *http.Request) {})
	}

	slices.Sort(methods)
	t.mux, t.byKey, t.methods, t.compiled = mux, byKey, methods, true
	return nil
}

// Match resolves method and path. HEAD requests fall back to GET routes.
func (t *Table) Match(method, path string) (Match, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.compiled {
		return Match{}, ErrNotCompiled
	}

	if m, ok := t.find(method, path); ok {
		return m, nil
	}
	if method == http.MethodHead {
		if m, ok := t.find(http.MethodGet, path); ok {
			return m, nil
		}
	}

	var allowed []string
	for _, other := range t.methods {
		if other == method {
			continue
		}
		if _, ok := t.find(other, path); ok {
			allowed = append(allowed, other)
		}
	}
	if len(allowed) > 0 {
		return Match{Outcome: MethodNotAllowed, Allowed: allowed}, nil
	}
	return Match{Outcome: NotFound}, nil
}

func (t *Table) find(method, path string) (Match, bool) {
	rctx := chi.NewRouteContext()
	pattern := t.mux.Find(rctx, method, path)
	if pattern == "" {
		return Match{}, false
	}
	e, ok := t.byKey[method+" "+pattern]
	if !ok {
		return Match{}, false
	}

	vars := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		val := rctx.URLParams.Values[i]
		if key == "*" && e.wildcard != "" {
			key = e.wildcard
		}
		vars[key] = val
	}
	return Match{Outcome: Found, Value: e.value, Pattern: e.path, Vars: vars}, true
}

func isStandardMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
