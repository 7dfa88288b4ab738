package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var cache sync.Map // sha256 of schema JSON -> *jsonschema.Schema

// Compile compiles schemaJSON once per distinct document.
func Compile(schemaJSON json.RawMessage) (*jsonschema.Schema, error) {
	if len(schemaJSON) == 0 {
		return nil, fmt.Errorf("schema is empty")
	}
	key := sha256.Sum256(schemaJSON)
	if s, ok := cache.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("schema resource: %w", err)
	}
	s, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	actual, _ := cache.LoadOrStore(key, s)
	return actual.(*jsonschema.Schema), nil
}

// Validate checks an already-decoded JSON value against a compiled schema.
func Validate(s *jsonschema.Schema, doc any) error {
	if s == nil {
		return nil
	}
	return s.Validate(doc)
}
