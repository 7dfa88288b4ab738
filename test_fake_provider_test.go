package ai

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mindscape-app/ai/internal/provider"
)

type fakeClient struct {
	mu sync.Mutex

	requests []provider.Request

	generate func(call int, req provider.Request) (provider.Response, error)
}

func (c *fakeClient) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	_ = ctx
	c.mu.Lock()
	c.requests = append(c.requests, req)
	call := len(c.requests) - 1
	gen := c.generate
	c.mu.Unlock()
	if gen == nil {
		return provider.Response{}, fmt.Errorf("fakeClient.Generate not configured")
	}
	return gen(call, req)
}

func (c *fakeClient) Requests() []provider.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]provider.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// newTestDispatcher wires fc behind a dispatcher that records sleeps instead
// of waiting and draws no jitter.
func newTestDispatcher(t *testing.T, fc *fakeClient, cfg Config) (*Dispatcher, *[]time.Duration) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	d := newDispatcher(cfg, fc, "fake")
	var (
		mu     sync.Mutex
		sleeps []time.Duration
	)
	d.sleep = func(ctx context.Context, delay time.Duration) error {
		mu.Lock()
		sleeps = append(sleeps, delay)
		mu.Unlock()
		return ctx.Err()
	}
	d.jitter = func(time.Duration) time.Duration { return 0 }
	return d, &sleeps
}

func respond(v any) func(int, provider.Request) (provider.Response, error) {
	return func(int, provider.Request) (provider.Response, error) {
		return provider.Response{Value: v}, nil
	}
}

func upstreamStatus(status int, msg string) *provider.Error {
	return &provider.Error{
		Provider: "fake",
		Status:   status,
		Message:  fmt.Sprintf("upstream API error: %d %s", status, msg),
	}
}
