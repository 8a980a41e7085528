package completion

import "sort"

// Type is the JSON type tag of a schema node.
type Type string

const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
)

// Schema describes the shape a completion must return. It is a small tree
// that each backend translates into its own dialect.
type Schema struct {
	Type        Type
	Description string
	Properties  map[string]*Schema
	Required    []string
	Enum        []string
	Items       *Schema
	// AcceptString also admits a string where a scalar of Type is asked for.
	// Backends still request Type; the caller coerces.
	AcceptString bool
}

// Object builds an object node. Required names must be keys of props.
func Object(props map[string]*Schema, required ...string) *Schema {
	return &Schema{Type: TypeObject, Properties: props, Required: required}
}

func Array(items *Schema) *Schema { return &Schema{Type: TypeArray, Items: items} }

func String() *Schema { return &Schema{Type: TypeString} }

func Number() *Schema { return &Schema{Type: TypeNumber} }

func Integer() *Schema { return &Schema{Type: TypeInteger} }

func Boolean() *Schema { return &Schema{Type: TypeBoolean} }

// Enum builds a string node restricted to values.
func Enum(values ...string) *Schema {
	return &Schema{Type: TypeString, Enum: append([]string(nil), values...)}
}

// Describe returns a copy of s with the description set.
func (s *Schema) Describe(desc string) *Schema {
	c := *s
	c.Description = desc
	return &c
}

// OrString returns a copy of s that also validates string values.
func (s *Schema) OrString() *Schema {
	c := *s
	c.AcceptString = s.Type != TypeString
	return &c
}

// PropertyNames returns object property names in sorted order so rendered
// prompts and schemas are stable.
func (s *Schema) PropertyNames() []string {
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JSONSchema renders s as a draft-07 JSON Schema document.
func (s *Schema) JSONSchema() map[string]any {
	out := s.jsonSchema()
	out["$schema"] = "http://json-schema.org/draft-07/schema#"
	return out
}

func (s *Schema) jsonSchema() map[string]any {
	out := map[string]any{"type": string(s.Type)}
	if s.AcceptString {
		out["type"] = []any{string(s.Type), string(TypeString)}
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, v := range s.Enum {
			enum[i] = v
		}
		out["enum"] = enum
	}
	switch s.Type {
	case TypeObject:
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.jsonSchema()
		}
		out["properties"] = props
		out["additionalProperties"] = true
		if len(s.Required) > 0 {
			req := make([]any, len(s.Required))
			for i, r := range s.Required {
				req[i] = r
			}
			out["required"] = req
		}
	case TypeArray:
		if s.Items != nil {
			out["items"] = s.Items.jsonSchema()
		}
	}
	return out
}
