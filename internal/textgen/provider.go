package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/mindscape-app/ai/internal/httpx"
	"github.com/mindscape-app/ai/internal/provider"
	"github.com/mindscape-app/ai/upstream"
)

const jsonOnlyInstruction = "\n\nIMPORTANT: Respond with a single valid JSON object only. " +
	"Do not wrap it in markdown code fences (no ```json or ```) and do not add any text before or after the JSON."

const maxBodyBytes = 8 << 20

type Provider struct {
	client *upstream.Client
}

func New(c *upstream.Client) *Provider {
	if c == nil {
		c = upstream.Default()
	}
	return &Provider{client: c}
}

func (p *Provider) Generate(ctx context.Context, req provider.Request) (provider.Response, error) {
	cfg := p.client.Config()
	model := selectModel(cfg, req)

	body, err := json.Marshal(buildRequest(req, model))
	if err != nil {
		return provider.Response{}, &provider.Error{Provider: upstream.ProviderName, Code: "marshal_error", Message: err.Error(), Cause: err}
	}

	h := make(http.Header)
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
	for k, v := range cfg.Headers {
		h.Set(k, v)
	}

	resp, err := httpx.PostJSON(ctx, cfg.HTTPClient, cfg.BaseURL, body, h)
	if err != nil {
		code := classifyNetworkErr(err)
		return provider.Response{}, &provider.Error{Provider: upstream.ProviderName, Code: code, Message: err.Error(), Cause: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		code := classifyNetworkErr(err)
		return provider.Response{}, &provider.Error{Provider: upstream.ProviderName, Code: code, Status: resp.StatusCode, Message: err.Error(), Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return provider.Response{}, statusError(resp, b)
	}

	v, err := decodeBody(b)
	if err != nil {
		return provider.Response{}, &provider.Error{
			Provider: upstream.ProviderName,
			Code:     "decode_error",
			Status:   resp.StatusCode,
			Message:  "failed to parse upstream response: " + err.Error(),
			Raw:      string(b),
			Cause:    err,
		}
	}

	return provider.Response{Value: v, Model: model, Body: b}, nil
}

func statusError(resp *http.Response, body []byte) *provider.Error {
	statusText := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if statusText == "" {
		statusText = http.StatusText(resp.StatusCode)
	}
	msg := fmt.Sprintf("upstream API error: %d %s", resp.StatusCode, statusText)

	code := "http_error"
	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Error.Message != "" {
		msg += ": " + er.Error.Message
		code = stringifyCode(er.Error.Code, er.Error.Type)
	}

	e := &provider.Error{
		Provider:   upstream.ProviderName,
		Code:       code,
		Status:     resp.StatusCode,
		StatusText: statusText,
		Message:    msg,
	}
	if ra, ok := httpx.RetryAfter(resp.Header.Get("Retry-After")); ok {
		e.RetryAfter = ra
	}
	return e
}

func selectModel(cfg upstream.Config, req provider.Request) string {
	if m := strings.TrimSpace(req.Model); m != "" {
		return m
	}
	if req.Capability != "" {
		if m, ok := cfg.CapabilityModels[req.Capability]; ok && m != "" {
			return m
		}
	}
	if n := len(cfg.FallbackModels); n > 0 {
		idx := req.Attempt % n
		if idx < 0 {
			idx += n
		}
		return cfg.FallbackModels[idx]
	}
	return cfg.Model
}

func buildRequest(req provider.Request, model string) chatRequest {
	parts := make([]contentPart, 0, 1+len(req.Images))
	parts = append(parts, contentPart{Type: "text", Text: req.UserPrompt})
	for _, img := range req.Images {
		parts = append(parts, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: img.DataURI()},
		})
	}

	return chatRequest{
		Messages: []chatMessage{
			{Role: string(provider.RoleSystem), Content: req.SystemPrompt + jsonOnlyInstruction},
			{Role: string(provider.RoleUser), Content: parts},
		},
		Model: model,
		JSON:  req.JSONMode,
	}
}

var fenceMarker = regexp.MustCompile("```(?:json|JSON)?")

// StripFences removes code-fence markers only; it does no brace matching.
func StripFences(s string) string {
	return strings.TrimSpace(fenceMarker.ReplaceAllString(strings.TrimSpace(s), ""))
}

func decodeBody(b []byte) (any, error) {
	text := StripFences(string(b))
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	return unwrapChatCompletion(v), nil
}

// unwrapChatCompletion returns choices[0].message content when the body is a
// chat-completion envelope and the body itself otherwise.
func unwrapChatCompletion(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return v
	}
	first, _ := choices[0].(map[string]any)
	msg, _ := first["message"].(map[string]any)
	if msg == nil {
		return v
	}

	switch content := msg["content"].(type) {
	case map[string]any, []any:
		return content
	case string:
		if strings.TrimSpace(content) != "" {
			var inner any
			if err := json.Unmarshal([]byte(StripFences(content)), &inner); err == nil {
				return inner
			}
			return content
		}
	}

	// Empty content with planning text: hand the message back so the
	// dispatcher can recognise a reasoning-only answer.
	if _, ok := msg["reasoning_content"]; ok {
		return msg
	}
	if _, ok := msg["reasoning"]; ok {
		return msg
	}
	return v
}

func stringifyCode(code any, fallback string) string {
	switch v := code.(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.Itoa(int(v))
	}
	if fallback != "" {
		return fallback
	}
	return "http_error"
}

func classifyNetworkErr(err error) string {
	if err == nil {
		return "network_error"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timeout"
	}
	return "network_error"
}

var _ provider.Client = (*Provider)(nil)
