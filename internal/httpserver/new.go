package httpserver

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mindscape-app/ai"
)

// Generator is the part of *ai.Dispatcher the HTTP layer needs.
type Generator interface {
	GenerateContent(ctx context.Context, req ai.GenerateRequest) (any, error)
	Health() *ai.HealthMonitor
	Breaker() *ai.Breaker
}

type HTTPServer struct {
	gin         *gin.Engine
	l           *zap.Logger
	host        string
	port        int
	serviceName string

	generator Generator
}

type Config struct {
	Host string
	Port int
	Mode string

	// ServiceName names the otelgin server spans.
	ServiceName string

	Generator Generator
}

// New creates an HTTPServer with every route mapped.
func New(logger *zap.Logger, cfg Config) (*HTTPServer, error) {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "mindscape-ai"
	}

	srv := &HTTPServer{
		gin:         gin.New(),
		l:           logger,
		host:        cfg.Host,
		port:        cfg.Port,
		serviceName: cfg.ServiceName,
		generator:   cfg.Generator,
	}
	if err := srv.validate(); err != nil {
		return nil, err
	}
	srv.mapHandlers()
	return srv, nil
}

func (srv *HTTPServer) validate() error {
	if srv.l == nil {
		return errors.New("logger is required")
	}
	// host can be empty (listen on all interfaces)
	if srv.port == 0 {
		return errors.New("port is required")
	}
	if srv.generator == nil {
		return errors.New("generator is required")
	}
	return nil
}
