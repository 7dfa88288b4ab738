package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "MINDSCAPE"

// Config holds the service configuration.
type Config struct {
	HTTPServer HTTPServerConfig `mapstructure:"http_server"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Upstream   UpstreamConfig   `mapstructure:"upstream"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

type HTTPServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"required,gte=1,lte=65535"`
	Mode string `mapstructure:"mode" validate:"required,oneof=debug release test"`
}

type LoggerConfig struct {
	Mode         string `mapstructure:"mode"     validate:"required,oneof=debug development prod production"`
	Level        string `mapstructure:"level"    validate:"omitempty,oneof=debug info warn error"`
	Encoding     string `mapstructure:"encoding" validate:"omitempty,oneof=json console"`
	ColorEnabled bool   `mapstructure:"color_enabled"`
}

// UpstreamConfig holds the text-generation provider settings.
type UpstreamConfig struct {
	BaseURL          string            `mapstructure:"base_url" validate:"required,url"`
	APIKey           string            `mapstructure:"api_key"`
	Model            string            `mapstructure:"model"    validate:"required"`
	FallbackModels   []string          `mapstructure:"fallback_models"`
	CapabilityModels map[string]string `mapstructure:"capability_models"`
	Timeout          time.Duration     `mapstructure:"timeout"  validate:"gt=0"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"    validate:"gte=1,lte=10"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" validate:"gte=0"`
}

// BreakerConfig controls automatic tripping. TripAfter zero leaves the
// breaker manual only.
type BreakerConfig struct {
	TripAfter time.Duration `mapstructure:"trip_after" validate:"gte=0"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// Load reads path (or mindscape.yaml from the usual locations when path is
// empty), applies MINDSCAPE_* environment overrides and validates the result.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	vip := viper.New()
	if path != "" {
		vip.SetConfigFile(path)
	} else {
		vip.SetConfigName("mindscape")
		vip.AddConfigPath("./config")
		vip.AddConfigPath(".")
		vip.AddConfigPath("/etc/mindscape/")
	}
	vip.SetConfigType("yaml")
	vip.SetEnvPrefix(envPrefix)
	vip.AutomaticEnv()
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(vip)

	if err := vip.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("http_server.host", "")
	vip.SetDefault("http_server.port", 8080)
	vip.SetDefault("http_server.mode", "release")

	vip.SetDefault("logger.mode", "production")
	vip.SetDefault("logger.level", "info")
	vip.SetDefault("logger.encoding", "")
	vip.SetDefault("logger.color_enabled", false)

	vip.SetDefault("upstream.base_url", "https://text.pollinations.ai/openai")
	vip.SetDefault("upstream.api_key", "")
	vip.SetDefault("upstream.model", "openai")
	vip.SetDefault("upstream.fallback_models", []string{})
	vip.SetDefault("upstream.capability_models", map[string]string{})
	vip.SetDefault("upstream.timeout", "120s")

	vip.SetDefault("retry.max_attempts", 5)
	vip.SetDefault("retry.attempt_timeout", "0s")

	vip.SetDefault("breaker.trip_after", "0s")

	vip.SetDefault("tracing.enabled", false)
	vip.SetDefault("tracing.service_name", "mindscape-ai")
	vip.SetDefault("tracing.endpoint", "")
	vip.SetDefault("tracing.insecure", false)
	vip.SetDefault("tracing.sample_ratio", 0.1)
}
