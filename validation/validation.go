// Package validation validates loosely typed request data against
// pipe-style rule lists ("required", "integer", "min:3", "in:a,b", "email").
package validation

import (
	"sort"
)

// Validator is the contract consumed by the validation middleware.
type Validator interface {
	Validate(data map[string]any, rules map[string][]string) Result
}

// Result reports the outcome of a validation run.
type Result interface {
	Fails() bool
	Errors() map[string][]string
}

// Errors is the default [Result]: field key to messages.
type Errors map[string][]string

// Fails reports whether any field failed.
func (e Errors) Fails() bool { return len(e) > 0 }

// Errors returns the messages keyed by field.
func (e Errors) Errors() map[string][]string { return e }

// Fields returns the failing keys in sorted order.
func (e Errors) Fields() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e Errors) add(field, message string) {
	e[field] = append(e[field], message)
}
