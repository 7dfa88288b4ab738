package ai

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/mindscape-app/ai/internal/httpx"
	"github.com/mindscape-app/ai/internal/provider"
	"github.com/mindscape-app/ai/internal/textgen"
	"github.com/mindscape-app/ai/upstream"
)

const schemaInstruction = "\n\nReturn a single JSON object that matches the requested schema exactly."

// Dispatcher is the entry point for structured generation against the
// upstream provider. It is safe for concurrent use.
type Dispatcher struct {
	client   provider.Client
	provider string

	health  *HealthMonitor
	breaker *Breaker

	policy         RetryPolicy
	attemptTimeout time.Duration
	tripAfter      time.Duration

	log    *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(max time.Duration) time.Duration
}

// NewDispatcher builds a Dispatcher over cfg.Upstream, or upstream.Default()
// when it is nil.
func NewDispatcher(cfg Config) *Dispatcher {
	up := cfg.Upstream
	if up == nil {
		up = upstream.Default()
	}
	return newDispatcher(cfg, textgen.New(up), up.Provider())
}

func newDispatcher(cfg Config, client provider.Client, providerName string) *Dispatcher {
	d := &Dispatcher{
		client:         client,
		provider:       providerName,
		health:         cfg.Health,
		breaker:        cfg.Breaker,
		policy:         cfg.Retry.withDefaults(),
		attemptTimeout: cfg.AttemptTimeout,
		tripAfter:      cfg.TripBreakerAfter,
		log:            cfg.Logger,
		sleep:          sleepContext,
		jitter:         httpx.Jitter,
	}
	if d.health == nil {
		d.health = NewHealthMonitor()
	}
	if d.breaker == nil {
		d.breaker = NewBreaker()
	}
	if d.log == nil {
		d.log = zap.NewNop()
	}
	d.log = d.log.With(zap.String("provider", providerName))
	d.health.Track(providerName)
	return d
}

var defaultDispatcher atomic.Pointer[Dispatcher]

func init() {
	defaultDispatcher.Store(NewDispatcher(Config{}))
}

// Configure replaces the process-wide dispatcher. Pass cfg.Health to keep
// the existing health history.
func Configure(cfg Config) {
	defaultDispatcher.Store(NewDispatcher(cfg))
}

// Default returns the process-wide dispatcher.
func Default() *Dispatcher { return defaultDispatcher.Load() }

// GenerateContent calls Default().GenerateContent.
func GenerateContent(ctx context.Context, req GenerateRequest) (any, error) {
	return Default().GenerateContent(ctx, req)
}

func (d *Dispatcher) Provider() string { return d.provider }

func (d *Dispatcher) Health() *HealthMonitor { return d.health }

func (d *Dispatcher) Breaker() *Breaker { return d.breaker }

// GenerateContent returns exactly one normalized value or one error. The
// health monitor is updated once per call, never per attempt.
func (d *Dispatcher) GenerateContent(ctx context.Context, req GenerateRequest) (out any, err error) {
	ctx, span := tracer().Start(ctx, "ai.generate_content", trace.WithAttributes(
		attribute.String("ai.provider", d.provider),
		attribute.String("ai.model", req.Model),
		attribute.Bool("ai.schema", req.Schema != nil),
	))
	defer func() {
		endSpanWithError(span, err)
		span.End()
	}()

	if d.tripAfter > 0 && !d.breaker.IsAvailable() {
		return nil, &Error{
			Provider: d.provider,
			Kind:     KindUnavailable,
			Code:     "unavailable",
			Message:  ErrProviderUnavailable.Error(),
			Cause:    ErrProviderUnavailable,
		}
	}

	systemPrompt := req.SystemPrompt
	if req.Schema != nil {
		systemPrompt += schemaInstruction
	}
	images := make([]provider.Image, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, provider.Image{MimeType: img.MimeType, Base64Data: img.Base64Data})
	}

	var lastErr error
	for attempt := 0; attempt < d.policy.MaxAttempts; attempt++ {
		v, err := d.attempt(ctx, req, systemPrompt, images, attempt)
		if err == nil {
			d.health.RecordSuccess(d.provider)
			return v, nil
		}
		lastErr = err

		delay, retry := d.policy.delay(err, attempt, d.jitter)
		if !retry || attempt == d.policy.MaxAttempts-1 {
			break
		}

		d.log.Warn("AI request retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", d.policy.MaxAttempts),
			zap.String("kind", string(KindOf(err))),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if sErr := d.sleep(ctx, delay); sErr != nil {
			lastErr = mapUpstreamError(sErr)
			break
		}
	}

	status := d.health.RecordFailure(d.provider)
	if status == StatusDown && d.tripAfter > 0 {
		d.breaker.Disable(d.tripAfter)
		d.log.Warn("provider disabled", zap.Duration("for", d.tripAfter))
	}
	d.log.Error("AI request failed",
		zap.String("kind", string(KindOf(lastErr))),
		zap.String("health", string(status)),
		zap.Error(lastErr),
	)
	return nil, lastErr
}

func (d *Dispatcher) attempt(ctx context.Context, req GenerateRequest, systemPrompt string, images []provider.Image, attempt int) (out any, err error) {
	hint := d.health.FailureCount(d.provider) + attempt

	ctx, span := tracer().Start(ctx, "ai.attempt", trace.WithAttributes(
		attribute.Int("ai.attempt", attempt+1),
		attribute.Int("ai.attempt_hint", hint),
	))
	defer func() {
		endSpanWithError(span, err)
		span.End()
	}()

	actx, cancel := d.attemptContext(ctx)
	defer cancel()

	resp, err := d.client.Generate(actx, provider.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   req.UserPrompt,
		Images:       images,
		Model:        req.Model,
		Capability:   req.Capability,
		APIKey:       req.APIKey,
		JSONMode:     true,
		Attempt:      hint,
	})
	var raw any
	switch {
	case err == nil:
		raw = resp.Value
		span.SetAttributes(attribute.Int("ai.response_bytes", len(resp.Body)))
		if resp.Model != "" {
			span.SetAttributes(attribute.String("ai.model", resp.Model))
		}
	default:
		// A body that is not JSON as a whole may still hold an object.
		var pe *provider.Error
		if !errors.As(err, &pe) || pe.Code != "decode_error" || pe.Raw == "" {
			return nil, mapUpstreamError(err)
		}
		raw = pe.Raw
		span.SetAttributes(attribute.Int("ai.response_bytes", len(pe.Raw)))
	}

	if IsReasoningOnly(raw) {
		return nil, d.reasoningOnlyError()
	}
	v, err := normalize(d.log, raw, req.Schema, req.Strict)
	if err != nil {
		return nil, err
	}
	// Text input is only inspected once parsed.
	if _, isText := raw.(string); isText && IsReasoningOnly(v) {
		return nil, d.reasoningOnlyError()
	}
	return v, nil
}

func (d *Dispatcher) reasoningOnlyError() *Error {
	return &Error{
		Provider: d.provider,
		Kind:     KindReasoningOnly,
		Code:     "reasoning_only",
		Message:  ErrReasoningOnly.Error(),
		Cause:    ErrReasoningOnly,
	}
}
