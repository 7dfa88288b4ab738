package ai

import (
	"context"
	"errors"
	"time"

	"github.com/mindscape-app/ai/internal/httpx"
)

// Delay reports how long to wait after err on the given zero-based attempt,
// and whether the error is worth retrying at all. Jitter is drawn from
// [0, MaxJitter].
func (p RetryPolicy) Delay(err error, attempt int) (time.Duration, bool) {
	return p.withDefaults().delay(err, attempt, httpx.Jitter)
}

// delay follows a fixed precedence: rate limit, then malformed or
// reasoning-only output, then timeout, server and transport failures.
func (p RetryPolicy) delay(err error, attempt int, jitter func(time.Duration) time.Duration) (time.Duration, bool) {
	switch KindOf(err) {
	case KindRateLimited:
		d := p.RateLimitBase*time.Duration(attempt+1) + jitter(p.MaxJitter)
		var e *Error
		if errors.As(err, &e) && e.RetryAfter > d {
			d = e.RetryAfter
		}
		return d, true
	case KindMalformedOutput, KindReasoningOnly:
		return p.SyntaxBase + jitter(p.MaxJitter), true
	case KindTimeout, KindServerError, KindTransport:
		return p.BackoffBase*time.Duration(1<<uint(attempt)) + jitter(p.MaxJitter), true
	default:
		return 0, false
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
