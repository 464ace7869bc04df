// Package definition describes route metadata and the parameter schema that
// the validation middleware is compiled from.
package definition

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Type is the declared type of a parameter.
type Type string

const (
	String  Type = "string"
	Int     Type = "int"
	Number  Type = "number"
	Boolean Type = "boolean"
	Array   Type = "array"
	Object  Type = "object"
)

var (
	// ErrUnknownType is returned for a type outside the supported set.
	ErrUnknownType = errors.New("unknown param type")
	// ErrInnerNotAllowed is returned when a scalar param declares inner params.
	ErrInnerNotAllowed = errors.New("inner params are only allowed on array and object params")
	// ErrMissingName is returned for a param without a name.
	ErrMissingName = errors.New("param name is required")
	// ErrInvalidEnum is returned for an enum value containing a comma, which
	// the "in:" rule cannot represent.
	ErrInvalidEnum = errors.New("enum values must not contain commas")
)

// ParseType maps a type name, including common aliases, to a [Type].
func ParseType(name string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string", "str":
		return String, true
	case "int", "integer":
		return Int, true
	case "number", "numeric", "float":
		return Number, true
	case "boolean", "bool":
		return Boolean, true
	case "array", "list":
		return Array, true
	case "object", "map":
		return Object, true
	}
	return "", false
}

// Param is one node of a parameter schema.
type Param struct {
	Type        Type
	Name        string
	Title       string
	Description string
	Default     any
	Validation  []string
	Enum        []any
	Inner       []*Param
}

// New returns a param of type t. Unknown types are reported by [Param.Validate].
func New(t Type, name string) *Param {
	return &Param{Type: t, Name: name}
}

// StringParam, IntParam, ... are shorthands for [New].
func StringParam(name string) *Param  { return New(String, name) }
func IntParam(name string) *Param     { return New(Int, name) }
func NumberParam(name string) *Param  { return New(Number, name) }
func BooleanParam(name string) *Param { return New(Boolean, name) }

// ArrayParam returns an array param. With exactly one inner param the array
// is homogeneous; with several it is validated like an object.
func ArrayParam(name string, inner ...*Param) *Param {
	return &Param{Type: Array, Name: name, Inner: inner}
}

// ObjectParam returns an object param with the given fields.
func ObjectParam(name string, inner ...*Param) *Param {
	return &Param{Type: Object, Name: name, Inner: inner}
}

// Required reports whether the param carries the "required" rule.
func (p *Param) Required() bool {
	return slices.Contains(p.Validation, "required")
}

// Rules appends validation rules.
func (p *Param) Rules(rules ...string) *Param {
	for _, r := range rules {
		if r = strings.TrimSpace(r); r != "" {
			p.Validation = append(p.Validation, r)
		}
	}
	return p
}

// WithTitle sets the human-readable title.
func (p *Param) WithTitle(title string) *Param {
	p.Title = title
	return p
}

// WithDescription sets the description.
func (p *Param) WithDescription(description string) *Param {
	p.Description = description
	return p
}

// WithDefault sets the value used when the top-level key is absent.
func (p *Param) WithDefault(v any) *Param {
	p.Default = v
	return p
}

// WithEnum restricts the value to the given set. Values must not contain commas.
func (p *Param) WithEnum(values ...any) *Param {
	p.Enum = append(p.Enum, values...)
	return p
}

// Add appends inner params.
func (p *Param) Add(inner ...*Param) *Param {
	p.Inner = append(p.Inner, inner...)
	return p
}

// Validate checks the param and its inner params recursively.
func (p *Param) Validate() error {
	if p.Name == "" {
		return ErrMissingName
	}
	for _, v := range p.Enum {
		if strings.Contains(fmt.Sprint(v), ",") {
			return fmt.Errorf("param %q: %w: %q", p.Name, ErrInvalidEnum, fmt.Sprint(v))
		}
	}
	switch p.Type {
	case String, Int, Number, Boolean:
		if len(p.Inner) > 0 {
			return fmt.Errorf("param %q: %w", p.Name, ErrInnerNotAllowed)
		}
	case Array, Object:
		for _, in := range p.Inner {
			if err := in.Validate(); err != nil {
				return fmt.Errorf("param %q: %w", p.Name, err)
			}
		}
	default:
		return fmt.Errorf("param %q: %w: %q", p.Name, ErrUnknownType, p.Type)
	}
	return nil
}
