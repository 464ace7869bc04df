package definition

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// LoadYAML parses a document of named definitions:
//
//	search:
//	  title: Search products
//	  type: catalog
//	  meta: {public: true}
//	  params:
//	    query: string|required|min:2
//	    page: {type: int, default: 1}
//	    filters:
//	      type: object
//	      inner:
//	        brand: string
//	        max_price: number
//
// Param and inner field order follows the document.
func LoadYAML(data []byte) (map[string]*Definition, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}
	out := map[string]*Definition{}
	if len(doc.Content) == 0 {
		return out, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse definitions: expected a mapping at line %d", root.Line)
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		def, err := decodeDefinition(root.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("definition %q: %w", name, err)
		}
		out[name] = def
	}
	return out, nil
}

func decodeDefinition(n *yaml.Node) (*Definition, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping at line %d", n.Line)
	}
	def := NewDefinition()
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, n.Content[i+1]
		switch key {
		case "title":
			def.SetTitle(val.Value)
		case "description":
			def.SetDescription(val.Value)
		case "type":
			def.SetType(val.Value)
		case "meta":
			var meta map[string]any
			if err := val.Decode(&meta); err != nil {
				return nil, fmt.Errorf("meta: %w", err)
			}
			for k, v := range meta {
				def.SetMeta(k, v)
			}
		case "params":
			if val.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("params: expected a mapping at line %d", val.Line)
			}
			for j := 0; j+1 < len(val.Content); j += 2 {
				pname := val.Content[j].Value
				spec, err := nodeSpec(pname, val.Content[j+1])
				if err != nil {
					return nil, err
				}
				def.Param(pname, spec)
			}
		default:
			return nil, fmt.Errorf("unknown key %q at line %d", key, n.Content[i].Line)
		}
	}
	return def, nil
}

// nodeSpec converts a YAML param node into a spec accepted by [Parse],
// turning ordered "inner" mappings into a list of built params.
func nodeSpec(name string, n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return n.Value, nil
	case yaml.MappingNode:
		m := map[string]any{}
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, val := n.Content[i].Value, n.Content[i+1]
			if key == "inner" && val.Kind == yaml.MappingNode {
				inner := make([]any, 0, len(val.Content)/2)
				for j := 0; j+1 < len(val.Content); j += 2 {
					cname := val.Content[j].Value
					cspec, err := nodeSpec(cname, val.Content[j+1])
					if err != nil {
						return nil, err
					}
					p, err := Parse(cname, cspec)
					if err != nil {
						return nil, err
					}
					inner = append(inner, p)
				}
				m[key] = inner
				continue
			}
			var v any
			if err := val.Decode(&v); err != nil {
				return nil, fmt.Errorf("param %q %s: %w", name, key, err)
			}
			m[key] = v
		}
		return m, nil
	default:
		return nil, fmt.Errorf("param %q: %w at line %d", name, ErrInvalidSpec, n.Line)
	}
}
