package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Mode         string
	Level        string
	Encoding     string
	ColorEnabled bool
}

// New builds a zap logger. "prod"/"production" selects the JSON production
// preset; anything else gets the development console preset.
func New(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	switch strings.ToLower(cfg.Mode) {
	case "prod", "production":
		zc = zap.NewProductionConfig()
	default:
		zc = zap.NewDevelopmentConfig()
		if cfg.ColorEnabled {
			zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
	}

	if cfg.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	switch enc := strings.ToLower(cfg.Encoding); enc {
	case "":
	case "json", "console":
		zc.Encoding = enc
	default:
		return nil, fmt.Errorf("logger: unknown encoding %q", cfg.Encoding)
	}

	return zc.Build()
}
