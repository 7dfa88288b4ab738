package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/mindscape-app/ai/internal/provider"
)

// mapUpstreamError tags a raw failure with its Kind. It runs once, where the
// error is first observed, so the retry loop never inspects messages.
func mapUpstreamError(err error) error {
	if err == nil {
		return nil
	}
	var se *StructuredOutputError
	if errors.As(err, &se) {
		return err
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCanceled, Code: "canceled", Message: err.Error(), Cause: err}
	}

	var pe *provider.Error
	if errors.As(err, &pe) {
		return &Error{
			Provider:   pe.Provider,
			Kind:       classifyProviderError(pe),
			Code:       pe.Code,
			Status:     pe.Status,
			Message:    pe.Message,
			RetryAfter: pe.RetryAfter,
			Cause:      pe,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Code: "timeout", Message: err.Error(), Cause: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Code: "timeout", Message: err.Error(), Cause: err}
	}
	return &Error{Kind: kindFromMessage(err.Error(), KindTransport), Code: "network_error", Message: err.Error(), Cause: err}
}

func classifyProviderError(pe *provider.Error) Kind {
	msg := pe.Message
	switch {
	case pe.Status == http.StatusTooManyRequests || containsFold(msg, "rate limit"):
		return KindRateLimited
	case pe.Code == "decode_error":
		return KindMalformedOutput
	case pe.Status == http.StatusRequestTimeout || pe.Code == "timeout" || containsFold(msg, "timeout"):
		return KindTimeout
	case pe.Status >= 500:
		return KindServerError
	case pe.Status >= 400:
		return KindClient
	case pe.Code == "marshal_error":
		return KindClient
	}
	return KindTransport
}

func kindFromMessage(msg string, fallback Kind) Kind {
	switch {
	case containsFold(msg, "rate limit"):
		return KindRateLimited
	case containsFold(msg, "timeout"):
		return KindTimeout
	}
	return fallback
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
