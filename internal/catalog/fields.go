package catalog

import (
	"sort"
	"strconv"
	"strings"
)

// Field returns the declared field with the given name.
func (n Niche) Field(name string) (Field, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FilterData keeps only the keys n declares, coercing values to the declared
// type. Keys that are undeclared, empty or not coercible are returned in
// dropped, sorted by name.
func (n Niche) FilterData(data map[string]any) (kept map[string]any, dropped []string) {
	kept = make(map[string]any, len(n.Fields))
	for key, raw := range data {
		f, ok := n.Field(key)
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		v, ok := coerce(f.Type, raw)
		if !ok {
			dropped = append(dropped, key)
			continue
		}
		kept[key] = v
	}
	sort.Strings(dropped)
	return kept, dropped
}

// MissingRequired lists required fields absent from data, in declaration order.
func (n Niche) MissingRequired(data map[string]any) []string {
	var missing []string
	for _, f := range n.Fields {
		if !f.Required {
			continue
		}
		if _, ok := data[f.Name]; !ok {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

func coerce(t FieldType, raw any) (any, bool) {
	switch t {
	case FieldNumber:
		switch v := raw.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			return f, err == nil
		}
	case FieldString:
		switch v := raw.(type) {
		case string:
			v = strings.TrimSpace(v)
			return v, v != ""
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(v), true
		}
	case FieldBoolean:
		switch v := raw.(type) {
		case bool:
			return v, true
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			return b, err == nil
		}
	}
	return nil, false
}
