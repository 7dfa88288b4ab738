package upstream

import (
	"net/http"
	"sync/atomic"
	"time"
)

const (
	ProviderName   = "pollinations"
	DefaultBaseURL = "https://text.pollinations.ai/openai"
	DefaultModel   = "openai"
)

type Config struct {
	BaseURL string
	APIKey  string

	// Model is used when a request names neither a model nor a capability
	// that CapabilityModels maps.
	Model string

	// CapabilityModels maps a capability hint (e.g. "reasoning") to a model.
	CapabilityModels map[string]string

	// FallbackModels, when set, rotate by attempt hint for requests without
	// an explicit model.
	FallbackModels []string

	Headers    map[string]string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: normalizeConfig(cfg)}
}

var defaultClient atomic.Pointer[Client]

func init() {
	defaultClient.Store(NewClient(Config{}))
}

func Configure(cfg Config) {
	defaultClient.Store(NewClient(cfg))
}

func Default() *Client { return defaultClient.Load() }

func (c *Client) Config() Config { return c.cfg }

func (c *Client) Provider() string { return ProviderName }

func normalizeConfig(cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return cfg
}
