package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mindscape-app/ai"
)

type imageRequest struct {
	MimeType   string `json:"mimeType" binding:"required"`
	Base64Data string `json:"base64Data" binding:"required,base64"`
}

type generateRequest struct {
	SystemPrompt string          `json:"systemPrompt"`
	UserPrompt   string          `json:"userPrompt" binding:"required"`
	Images       []imageRequest  `json:"images" binding:"omitempty,dive"`
	Schema       json.RawMessage `json:"schema"`
	Model        string          `json:"model"`
	Capability   string          `json:"capability"`
	Strict       bool            `json:"strict"`
	APIKey       string          `json:"apiKey"`
}

func (r generateRequest) toAI() (ai.GenerateRequest, error) {
	out := ai.GenerateRequest{
		SystemPrompt: r.SystemPrompt,
		UserPrompt:   r.UserPrompt,
		Model:        r.Model,
		Capability:   r.Capability,
		Strict:       r.Strict,
		APIKey:       r.APIKey,
	}
	for _, img := range r.Images {
		out.Images = append(out.Images, ai.InlineImage{MimeType: img.MimeType, Base64Data: img.Base64Data})
	}
	if len(r.Schema) > 0 && string(r.Schema) != "null" {
		v, err := ai.CompileJSONSchema(r.Schema)
		if err != nil {
			return out, err
		}
		out.Schema = v
	}
	return out, nil
}

func (srv *HTTPServer) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	genReq, err := req.toAI()
	if err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	out, err := srv.generator.GenerateContent(c.Request.Context(), genReq)
	if err != nil {
		respondGenerateError(c, err)
		return
	}
	respondOK(c, out)
}

type healthResponse struct {
	Providers []ai.ProviderReport `json:"providers"`
	Breaker   breakerState        `json:"breaker"`
}

type breakerState struct {
	Available     bool       `json:"available"`
	DisabledUntil *time.Time `json:"disabledUntil,omitempty"`
}

func (srv *HTTPServer) breakerState() breakerState {
	b := srv.generator.Breaker()
	st := breakerState{Available: b.IsAvailable()}
	if !st.Available {
		until := b.DisabledUntil()
		st.DisabledUntil = &until
	}
	return st
}

func (srv *HTTPServer) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Providers: srv.generator.Health().Report(),
		Breaker:   srv.breakerState(),
	})
}

type disableRequest struct {
	Minutes int `json:"minutes" binding:"required,gte=1"`
}

func (srv *HTTPServer) disableBreaker(c *gin.Context) {
	var req disableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	srv.generator.Breaker().DisableMinutes(req.Minutes)
	srv.l.Warn("provider disabled manually", zap.Int("minutes", req.Minutes))
	respondOK(c, srv.breakerState())
}

func (srv *HTTPServer) enableBreaker(c *gin.Context) {
	srv.generator.Breaker().Enable()
	srv.l.Info("provider enabled manually")
	respondOK(c, srv.breakerState())
}
