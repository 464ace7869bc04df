package definition

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidSpec is returned when a schema spec has an unsupported shape.
var ErrInvalidSpec = errors.New("invalid param spec")

// Parse builds a param named name from a schema spec. See [Definition.Param]
// for the accepted forms.
func Parse(name string, spec any) (*Param, error) {
	switch s := spec.(type) {
	case nil:
		return StringParam(name), nil
	case *Param:
		if s == nil {
			return StringParam(name), nil
		}
		if s.Name == "" {
			s.Name = name
		}
		return s, nil
	case Param:
		p := s
		if p.Name == "" {
			p.Name = name
		}
		return &p, nil
	case Type:
		return New(s, name), nil
	case string:
		return parseRuleString(name, s)
	case map[string]any:
		return parseMap(name, s)
	default:
		return nil, fmt.Errorf("param %q: %w: %T", name, ErrInvalidSpec, spec)
	}
}

func parseRuleString(name, spec string) (*Param, error) {
	tokens := strings.Split(spec, "|")
	p := StringParam(name)
	if t, ok := ParseType(tokens[0]); ok {
		p.Type = t
		tokens = tokens[1:]
	}
	p.Rules(tokens...)
	return p, nil
}

func parseMap(name string, m map[string]any) (*Param, error) {
	p := StringParam(name)
	if n, ok := m["name"].(string); ok && n != "" {
		p.Name = n
	}

	if raw, ok := m["type"]; ok {
		s, _ := raw.(string)
		t, known := ParseType(s)
		if !known {
			return nil, fmt.Errorf("param %q: %w: %v", p.Name, ErrUnknownType, raw)
		}
		p.Type = t
	}
	p.Title, _ = m["title"].(string)
	p.Description, _ = m["description"].(string)
	p.Default = m["default"]

	for _, key := range []string{"validation", "rules"} {
		rules, err := stringList(m[key])
		if err != nil {
			return nil, fmt.Errorf("param %q %s: %w", p.Name, key, err)
		}
		p.Rules(rules...)
	}

	switch enum := m["enum"].(type) {
	case nil:
	case []any:
		p.Enum = enum
	default:
		return nil, fmt.Errorf("param %q enum: %w: %T", p.Name, ErrInvalidSpec, enum)
	}

	inner, err := parseInner(p.Name, m["inner"])
	if err != nil {
		return nil, err
	}
	p.Inner = inner
	return p, nil
}

func parseInner(parent string, raw any) ([]*Param, error) {
	switch in := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]*Param, 0, len(in))
		for i, spec := range in {
			name := ""
			if m, ok := spec.(map[string]any); ok {
				name, _ = m["name"].(string)
			}
			if name == "" {
				name = fmt.Sprintf("%d", i)
			}
			p, err := Parse(name, spec)
			if err != nil {
				return nil, fmt.Errorf("param %q: %w", parent, err)
			}
			out = append(out, p)
		}
		return out, nil
	case map[string]any:
		// Plain maps carry no order; fields are sorted for determinism.
		names := make([]string, 0, len(in))
		for name := range in {
			names = append(names, name)
		}
		slices.Sort(names)
		out := make([]*Param, 0, len(in))
		for _, name := range names {
			p, err := Parse(name, in[name])
			if err != nil {
				return nil, fmt.Errorf("param %q: %w", parent, err)
			}
			out = append(out, p)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("param %q inner: %w: %T", parent, ErrInvalidSpec, raw)
	}
}

func stringList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return strings.Split(v, "|"), nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: rule %v is not a string", ErrInvalidSpec, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidSpec, raw)
	}
}
