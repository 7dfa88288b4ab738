package ai

import (
	"errors"
	"time"
)

// Kind is the closed set of failure classes the retry loop switches on.
type Kind string

const (
	KindRateLimited     Kind = "rate_limited"
	KindServerError     Kind = "server_error"
	KindTimeout         Kind = "timeout"
	KindMalformedOutput Kind = "malformed_output"
	KindReasoningOnly   Kind = "reasoning_only"
	KindSchemaMismatch  Kind = "schema_mismatch"
	KindTransport       Kind = "transport"
	KindClient          Kind = "client_error"
	KindCanceled        Kind = "canceled"
	KindUnavailable     Kind = "unavailable"
)

var (
	ErrReasoningOnly       = errors.New("model returned reasoning without structured output")
	ErrProviderUnavailable = errors.New("provider temporarily disabled")
)

// Error is a classified upstream or dispatch failure.
type Error struct {
	Provider   string
	Kind       Kind
	Code       string
	Status     int
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Provider != "" && e.Message != "" {
		return e.Provider + ": " + e.Message
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Provider != "" {
		return e.Provider + ": error"
	}
	return "error"
}

func (e *Error) Unwrap() error { return e.Cause }

// StructuredOutputError reports output that could not be turned into the
// requested structure. SchemaError is nil when the JSON itself was broken.
type StructuredOutputError struct {
	Message     string
	RawOutput   string
	SchemaError error
	Cause       error
}

func (e *StructuredOutputError) Error() string {
	if e == nil {
		return ""
	}
	if e.SchemaError != nil {
		return e.Message + ": " + e.SchemaError.Error()
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *StructuredOutputError) Unwrap() error {
	if e.SchemaError != nil {
		return e.SchemaError
	}
	return e.Cause
}

func (e *StructuredOutputError) Kind() Kind {
	if e.SchemaError != nil {
		return KindSchemaMismatch
	}
	return KindMalformedOutput
}

// KindOf reports the failure class of err, or "" when err carries none.
func KindOf(err error) Kind {
	var se *StructuredOutputError
	if errors.As(err, &se) {
		return se.Kind()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsRateLimited(err error) bool { return KindOf(err) == KindRateLimited }

func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }

func IsServerError(err error) bool { return KindOf(err) == KindServerError }

func IsMalformedOutput(err error) bool { return KindOf(err) == KindMalformedOutput }

func IsSchemaMismatch(err error) bool { return KindOf(err) == KindSchemaMismatch }

func IsReasoningOnlyError(err error) bool {
	return KindOf(err) == KindReasoningOnly || errors.Is(err, ErrReasoningOnly)
}

func IsCanceled(err error) bool { return KindOf(err) == KindCanceled }
