package completion

import (
	"github.com/xeipuuv/gojsonschema"
)

// compile turns schema into a gojsonschema validator. It runs before the
// model is called so a malformed schema never costs a completion.
func compile(call string, schema *Schema) (*gojsonschema.Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema.JSONSchema()))
	if err != nil {
		return nil, &SchemaError{Call: call, Err: err}
	}
	return compiled, nil
}

// validate checks doc against a compiled schema and returns one message per
// violation.
func validate(compiled *gojsonschema.Schema, doc any) ([]string, error) {
	result, err := compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, err
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		violations[i] = desc.String()
	}
	return violations, nil
}
