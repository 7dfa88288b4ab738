package provider

import "context"

// Client performs exactly one round-trip to an upstream text-generation
// endpoint. Retrying is the caller's concern.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

type Request struct {
	SystemPrompt string
	UserPrompt   string
	Images       []Image

	Model      string
	Capability string
	APIKey     string

	// JSONMode asks the endpoint for its native JSON-output mode.
	JSONMode bool

	// Attempt is an opaque rotation hint: cumulative attempts across calls.
	Attempt int
}

type Response struct {
	// Value is the decoded JSON value, or the raw content string when the
	// chat envelope carried non-JSON text.
	Value any
	Model string
	Body  []byte
}
