package schema

import (
	"testing"
)

const topicSchema = `{"type":"object","required":["topic"],"properties":{"topic":{"type":"string"}}}`

func TestCompileCachesByContent(t *testing.T) {
	a, err := Compile([]byte(topicSchema))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compile([]byte(topicSchema))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatalf("expected cached schema instance")
	}
}

func TestCompileRejectsInvalidSchema(t *testing.T) {
	if _, err := Compile([]byte(`{"type":`)); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := Compile(nil); err == nil {
		t.Fatalf("expected error for empty schema")
	}
}

func TestValidate(t *testing.T) {
	s, err := Compile([]byte(topicSchema))
	if err != nil {
		t.Fatal(err)
	}
	if err := Validate(s, map[string]any{"topic": "Go"}); err != nil {
		t.Fatal(err)
	}
	if err := Validate(s, map[string]any{"topic": 3.0}); err == nil {
		t.Fatalf("expected type error")
	}
	if err := Validate(nil, "anything"); err != nil {
		t.Fatal(err)
	}
}
