package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mindscape-app/ai"
)

type APIError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

type DataEnvelope struct {
	Data any `json:"data"`
}

func respondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, DataEnvelope{Data: payload})
}

func respondError(c *gin.Context, status int, kind, msg string) {
	c.JSON(status, ErrorEnvelope{Error: APIError{Kind: kind, Message: msg}})
}

// respondGenerateError maps a dispatcher failure to a status code.
func respondGenerateError(c *gin.Context, err error) {
	kind := ai.KindOf(err)
	respondError(c, statusForError(err), string(kind), err.Error())
}

func statusForError(err error) int {
	var se *ai.StructuredOutputError
	if errors.As(err, &se) {
		return http.StatusUnprocessableEntity
	}
	switch ai.KindOf(err) {
	case ai.KindRateLimited:
		return http.StatusTooManyRequests
	case ai.KindServerError, ai.KindReasoningOnly, ai.KindTransport:
		return http.StatusBadGateway
	case ai.KindUnavailable:
		return http.StatusServiceUnavailable
	case ai.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
