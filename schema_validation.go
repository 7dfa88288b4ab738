package ai

import (
	"encoding/json"
	"fmt"

	"github.com/mindscape-app/ai/internal/schema"
)

// Validator checks a decoded JSON value. TryParse never panics: a non-nil
// error is the validation failure, and on success the returned value is the
// validated (possibly coerced) result.
type Validator interface {
	TryParse(input any) (any, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(input any) (any, error)

func (f ValidatorFunc) TryParse(input any) (any, error) { return f(input) }

type jsonSchemaValidator struct {
	doc json.RawMessage
}

// JSONSchema returns a Validator for a JSON Schema document. The schema is
// compiled on first use and cached.
func JSONSchema(schemaJSON []byte) Validator {
	return jsonSchemaValidator{doc: append(json.RawMessage(nil), schemaJSON...)}
}

// CompileJSONSchema is JSONSchema but reports an invalid schema up front.
func CompileJSONSchema(schemaJSON []byte) (Validator, error) {
	if _, err := schema.Compile(schemaJSON); err != nil {
		return nil, err
	}
	return JSONSchema(schemaJSON), nil
}

func (v jsonSchemaValidator) TryParse(input any) (any, error) {
	s, err := schema.Compile(v.doc)
	if err != nil {
		return nil, err
	}
	doc, err := toJSONValue(input)
	if err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := schema.Validate(s, doc); err != nil {
		return nil, err
	}
	return input, nil
}

// toJSONValue round-trips values that are not plain decoded JSON (structs,
// typed maps) so the schema library sees map[string]any / []any / float64.
func toJSONValue(input any) (any, error) {
	switch input.(type) {
	case nil, bool, float64, string, map[string]any, []any, json.Number:
		return input, nil
	}
	b, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
