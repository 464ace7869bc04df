package definition

import (
	"fmt"
	"maps"
	"sync"
)

// Facade is the read side of a definition. Routes resolve unset fields
// through the facade of their group.
type Facade interface {
	Title() string
	Description() string
	Type() string
	Meta(key string) any
}

// Definition holds named metadata and the parameter schema of a route or group.
type Definition struct {
	title       *string
	description *string
	typ         *string
	meta        map[string]any
	parent      Facade

	names []string
	specs map[string]any

	once     sync.Once
	resolved []*Param
	err      error
}

// NewDefinition returns an empty definition.
func NewDefinition() *Definition {
	return &Definition{meta: map[string]any{}, specs: map[string]any{}}
}

// SetTitle sets the title.
func (d *Definition) SetTitle(title string) *Definition {
	d.title = &title
	return d
}

// SetDescription sets the description.
func (d *Definition) SetDescription(description string) *Definition {
	d.description = &description
	return d
}

// SetType sets the definition type used by Router.RoutesByDefinitionType.
func (d *Definition) SetType(typ string) *Definition {
	d.typ = &typ
	return d
}

// SetMeta stores a metadata value. Metadata never falls back to the parent.
func (d *Definition) SetMeta(key string, value any) *Definition {
	d.meta[key] = value
	return d
}

// SetParent sets the facade that unset fields resolve through.
func (d *Definition) SetParent(parent Facade) *Definition {
	d.parent = parent
	return d
}

// Parent returns the fallback facade, if any.
func (d *Definition) Parent() Facade { return d.parent }

// Param declares a parameter. spec may be a *Param, a Param, a pipe-separated
// rule string such as "int|required|min:1" or a map as produced by YAML.
// Declaring the same name twice replaces the spec and keeps its position.
func (d *Definition) Param(name string, spec any) *Definition {
	if _, ok := d.specs[name]; !ok {
		d.names = append(d.names, name)
	}
	d.specs[name] = spec
	return d
}

// AddParams declares already-built params in order.
func (d *Definition) AddParams(params ...*Param) *Definition {
	for _, p := range params {
		d.Param(p.Name, p)
	}
	return d
}

// Title returns the title, falling back to the parent.
func (d *Definition) Title() string {
	return d.resolve(d.title, Facade.Title)
}

// Description returns the description, falling back to the parent.
func (d *Definition) Description() string {
	return d.resolve(d.description, Facade.Description)
}

// Type returns the definition type, falling back to the parent.
func (d *Definition) Type() string {
	return d.resolve(d.typ, Facade.Type)
}

// Meta returns the metadata value for key, or nil.
func (d *Definition) Meta(key string) any {
	return d.meta[key]
}

// AllMeta returns a copy of every metadata entry.
func (d *Definition) AllMeta() map[string]any {
	return maps.Clone(d.meta)
}

// HasParams reports whether any parameter was declared.
func (d *Definition) HasParams() bool {
	return len(d.names) > 0
}

// Params resolves the declared specs in declaration order. The result is
// computed once; later declarations are not picked up.
func (d *Definition) Params() ([]*Param, error) {
	d.once.Do(func() {
		params := make([]*Param, 0, len(d.names))
		for _, name := range d.names {
			p, err := Parse(name, d.specs[name])
			if err != nil {
				d.err = err
				return
			}
			if err := p.Validate(); err != nil {
				d.err = err
				return
			}
			params = append(params, p)
		}
		d.resolved = params
	})
	return d.resolved, d.err
}

func (d *Definition) resolve(v *string, fallback func(Facade) string) string {
	if v != nil {
		return *v
	}
	if d.parent != nil {
		return fallback(d.parent)
	}
	return ""
}

// String implements fmt.Stringer for log output.
func (d *Definition) String() string {
	return fmt.Sprintf("definition(type=%q, title=%q, params=%d)", d.Type(), d.Title(), len(d.names))
}
