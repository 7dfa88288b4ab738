package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mindscape-app/ai"
)

type fakeGenerator struct {
	health  *ai.HealthMonitor
	breaker *ai.Breaker

	last     ai.GenerateRequest
	generate func(req ai.GenerateRequest) (any, error)
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{health: ai.NewHealthMonitor(), breaker: ai.NewBreaker()}
}

func (g *fakeGenerator) GenerateContent(ctx context.Context, req ai.GenerateRequest) (any, error) {
	g.last = req
	if g.generate == nil {
		return nil, errors.New("not configured")
	}
	return g.generate(req)
}

func (g *fakeGenerator) Health() *ai.HealthMonitor { return g.health }
func (g *fakeGenerator) Breaker() *ai.Breaker      { return g.breaker }

func newTestServer(t *testing.T, g Generator, log *zap.Logger) *HTTPServer {
	t.Helper()
	if log == nil {
		log = zap.NewNop()
	}
	srv, err := New(log, Config{Port: 8080, Mode: gin.TestMode, Generator: g})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *HTTPServer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestNew_Validates(t *testing.T) {
	_, err := New(nil, Config{Port: 1, Generator: newFakeGenerator()})
	assert.Error(t, err)
	_, err = New(zap.NewNop(), Config{Generator: newFakeGenerator()})
	assert.Error(t, err)
	_, err = New(zap.NewNop(), Config{Port: 1})
	assert.Error(t, err)
}

func TestGenerate_OK(t *testing.T) {
	g := newFakeGenerator()
	g.generate = func(req ai.GenerateRequest) (any, error) {
		return map[string]any{"topic": req.UserPrompt}, nil
	}
	srv := newTestServer(t, g, nil)

	rec := do(t, srv, http.MethodPost, "/v1/generate", `{
		"systemPrompt": "sys",
		"userPrompt": "Cells",
		"images": [{"mimeType": "image/png", "base64Data": "AAAA"}],
		"schema": {"type": "object"},
		"capability": "vision",
		"strict": true
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"data": map[string]any{"topic": "Cells"}}, decodeBody(t, rec))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	assert.Equal(t, "sys", g.last.SystemPrompt)
	assert.Equal(t, []ai.InlineImage{{MimeType: "image/png", Base64Data: "AAAA"}}, g.last.Images)
	assert.Equal(t, "vision", g.last.Capability)
	assert.True(t, g.last.Strict)
	require.NotNil(t, g.last.Schema)
	_, err := g.last.Schema.TryParse(map[string]any{})
	assert.NoError(t, err)
}

func TestGenerate_BadRequest(t *testing.T) {
	srv := newTestServer(t, newFakeGenerator(), nil)

	for name, body := range map[string]string{
		"missing prompt": `{"systemPrompt":"x"}`,
		"not json":       `{`,
		"bad image":      `{"userPrompt":"x","images":[{"mimeType":"image/png","base64Data":"###"}]}`,
		"bad schema":     `{"userPrompt":"x","schema":{"type":12}}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/v1/generate", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			errBody, _ := decodeBody(t, rec)["error"].(map[string]any)
			assert.Equal(t, "bad_request", errBody["kind"])
		})
	}
}

func TestGenerate_ErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
		kind string
	}{
		{&ai.StructuredOutputError{Message: "bad", SchemaError: errors.New("x")}, http.StatusUnprocessableEntity, "schema_mismatch"},
		{&ai.StructuredOutputError{Message: "bad"}, http.StatusUnprocessableEntity, "malformed_output"},
		{&ai.Error{Kind: ai.KindRateLimited, Message: "slow"}, http.StatusTooManyRequests, "rate_limited"},
		{&ai.Error{Kind: ai.KindServerError, Message: "503"}, http.StatusBadGateway, "server_error"},
		{&ai.Error{Kind: ai.KindReasoningOnly, Message: "hmm"}, http.StatusBadGateway, "reasoning_only"},
		{&ai.Error{Kind: ai.KindUnavailable, Message: "off"}, http.StatusServiceUnavailable, "unavailable"},
		{&ai.Error{Kind: ai.KindTimeout, Message: "slow"}, http.StatusGatewayTimeout, "timeout"},
		{&ai.Error{Kind: ai.KindClient, Message: "400"}, http.StatusInternalServerError, "client_error"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			g := newFakeGenerator()
			g.generate = func(ai.GenerateRequest) (any, error) { return nil, tc.err }
			srv := newTestServer(t, g, nil)

			rec := do(t, srv, http.MethodPost, "/v1/generate", `{"userPrompt":"x"}`)
			assert.Equal(t, tc.want, rec.Code)
			errBody, _ := decodeBody(t, rec)["error"].(map[string]any)
			assert.Equal(t, tc.kind, errBody["kind"])
			assert.Equal(t, tc.err.Error(), errBody["message"])
		})
	}
}

func TestHealth(t *testing.T) {
	g := newFakeGenerator()
	for i := 0; i < 3; i++ {
		g.health.RecordFailure("pollinations")
	}
	srv := newTestServer(t, g, nil)

	rec := do(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, []any{map[string]any{
		"provider":     "pollinations",
		"status":       "degraded",
		"failureCount": float64(3),
		"successCount": float64(0),
	}}, body["providers"])
	assert.Equal(t, map[string]any{"available": true}, body["breaker"])
}

func TestBreakerRoutes(t *testing.T) {
	g := newFakeGenerator()
	srv := newTestServer(t, g, nil)

	rec := do(t, srv, http.MethodPost, "/v1/breaker/disable", `{"minutes": 5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, g.breaker.IsAvailable())
	until := g.breaker.DisabledUntil()
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), until, time.Minute)

	data, _ := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, false, data["available"])
	assert.NotEmpty(t, data["disabledUntil"])

	rec = do(t, srv, http.MethodPost, "/v1/breaker/disable", `{"minutes": 0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/v1/breaker/enable", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, g.breaker.IsAvailable())
}

func TestRequestID_Propagates(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv := newTestServer(t, newFakeGenerator(), zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "abc-123", entries[0].ContextMap()["request_id"])
	assert.Equal(t, "/health", entries[0].ContextMap()["path"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	g := newFakeGenerator()
	g.generate = func(ai.GenerateRequest) (any, error) { panic("boom") }
	srv := newTestServer(t, g, zap.New(core))

	rec := do(t, srv, http.MethodPost, "/v1/generate", `{"userPrompt":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("Panic recovered").Len())
	assert.Equal(t, 1, logs.FilterMessage("HTTP request").Len())
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	srv, err := New(zap.NewNop(), Config{Host: "127.0.0.1", Port: port, Mode: gin.TestMode, Generator: newFakeGenerator()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
