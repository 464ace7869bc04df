// Package middleware provides the middleware stack and alias registry used by
// the switchyard dispatcher, plus the built-in validation and request ID
// middleware.
package middleware

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/iaconlabs/switchyard/router"
)

// Entry is one element of a [Stack]: either a ready instance or a name
// (alias or container type) resolved lazily with constructor args.
type Entry struct {
	Instance router.Middleware
	Name     string
	Args     []any
}

// Alias returns an entry resolved through the [Registry] at dispatch time.
func Alias(name string, args ...any) Entry {
	return Entry{Name: name, Args: args}
}

// EntryOf converts a supported value into an Entry. Supported values are
// [router.Middleware], func(http.Handler) http.Handler, an alias string and
// an Entry. Anything else panics: stacks are assembled at configuration time.
func EntryOf(v any) Entry {
	switch m := v.(type) {
	case Entry:
		return m
	case string:
		return Alias(m)
	case router.Middleware:
		return Entry{Instance: m}
	case func(r *http.Request, next router.Handler) (*router.Response, error):
		return Entry{Instance: router.MiddlewareFunc(m)}
	case func(http.Handler) http.Handler:
		return Entry{Instance: FromHTTP(m)}
	default:
		panic(fmt.Sprintf("switchyard: unsupported middleware type %T", v))
	}
}

// String describes the entry for logs and errors.
func (e Entry) String() string {
	if e.Instance != nil {
		return fmt.Sprintf("%T", e.Instance)
	}
	return e.Name
}

// Stack is an ordered list of middleware entries. It is not safe for
// concurrent mutation; configuration stacks are cloned for each dispatch.
type Stack struct {
	entries []Entry
}

// NewStack returns a stack holding mws in order.
func NewStack(mws ...any) *Stack {
	s := &Stack{}
	return s.Push(mws...)
}

// Push appends middleware at the end (innermost position).
func (s *Stack) Push(mws ...any) *Stack {
	for _, m := range mws {
		s.entries = append(s.entries, EntryOf(m))
	}
	return s
}

// Prepend inserts middleware at the front, keeping their relative order.
func (s *Stack) Prepend(mws ...any) *Stack {
	front := make([]Entry, 0, len(mws))
	for _, m := range mws {
		front = append(front, EntryOf(m))
	}
	s.entries = append(front, s.entries...)
	return s
}

// Shift removes and returns the first entry.
func (s *Stack) Shift() (Entry, bool) {
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	e := s.entries[0]
	s.entries[0] = Entry{}
	s.entries = s.entries[1:]
	return e, true
}

// Len returns the number of entries.
func (s *Stack) Len() int { return len(s.entries) }

// Entries returns a copy of the entries.
func (s *Stack) Entries() []Entry { return slices.Clone(s.entries) }

// Clone returns an independent copy of the stack.
func (s *Stack) Clone() *Stack {
	if s == nil {
		return &Stack{}
	}
	return &Stack{entries: slices.Clone(s.entries)}
}
