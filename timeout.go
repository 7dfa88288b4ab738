package ai

import (
	"context"
	"time"
)

// attemptContext bounds one upstream round-trip by AttemptTimeout. An earlier
// caller deadline is left in place.
func (d *Dispatcher) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.attemptTimeout <= 0 {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= d.attemptTimeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.attemptTimeout)
}
