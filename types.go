package ai

import (
	"time"

	"go.uber.org/zap"

	"github.com/mindscape-app/ai/upstream"
)

type InlineImage struct {
	MimeType   string `json:"mimeType"`
	Base64Data string `json:"base64Data"`
}

type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	Images       []InlineImage

	// Schema is optional. Without it the parsed JSON is returned as-is.
	Schema Validator

	Model      string
	Capability string
	Strict     bool
	APIKey     string
}

type Config struct {
	// Upstream defaults to upstream.Default().
	Upstream *upstream.Client

	// Health defaults to a fresh monitor owned by the dispatcher.
	Health  *HealthMonitor
	Breaker *Breaker

	Retry RetryPolicy

	// AttemptTimeout bounds a single upstream round-trip. Zero disables it.
	AttemptTimeout time.Duration

	// TripBreakerAfter, when positive, disables the provider for this long
	// once its health status reaches StatusDown, and makes GenerateContent
	// refuse calls while the breaker is open.
	TripBreakerAfter time.Duration

	Logger *zap.Logger
}

type RetryPolicy struct {
	MaxAttempts   int
	RateLimitBase time.Duration
	SyntaxBase    time.Duration
	BackoffBase   time.Duration
	MaxJitter     time.Duration
}

const (
	DefaultMaxAttempts   = 5
	DefaultRateLimitBase = 5 * time.Second
	DefaultSyntaxBase    = 1 * time.Second
	DefaultBackoffBase   = 1 * time.Second
	DefaultMaxJitter     = 2 * time.Second
)

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.RateLimitBase <= 0 {
		p.RateLimitBase = DefaultRateLimitBase
	}
	if p.SyntaxBase <= 0 {
		p.SyntaxBase = DefaultSyntaxBase
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = DefaultBackoffBase
	}
	if p.MaxJitter < 0 {
		p.MaxJitter = 0
	} else if p.MaxJitter == 0 {
		p.MaxJitter = DefaultMaxJitter
	}
	return p
}
