package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mindscape-app/ai"
	"github.com/mindscape-app/ai/internal/config"
	"github.com/mindscape-app/ai/internal/httpserver"
	"github.com/mindscape-app/ai/internal/logger"
	"github.com/mindscape-app/ai/internal/observability"
	"github.com/mindscape-app/ai/upstream"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to mindscape.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Mode:         cfg.Logger.Mode,
		Level:        cfg.Logger.Level,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Init(ctx, log, observability.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Version:     version,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	up := upstream.NewClient(upstream.Config{
		BaseURL:          cfg.Upstream.BaseURL,
		APIKey:           cfg.Upstream.APIKey,
		Model:            cfg.Upstream.Model,
		FallbackModels:   cfg.Upstream.FallbackModels,
		CapabilityModels: cfg.Upstream.CapabilityModels,
		Timeout:          cfg.Upstream.Timeout,
	})
	dispatcher := ai.NewDispatcher(ai.Config{
		Upstream:         up,
		Retry:            ai.RetryPolicy{MaxAttempts: cfg.Retry.MaxAttempts},
		AttemptTimeout:   cfg.Retry.AttemptTimeout,
		TripBreakerAfter: cfg.Breaker.TripAfter,
		Logger:           log,
	})

	srv, err := httpserver.New(log, httpserver.Config{
		Host:        cfg.HTTPServer.Host,
		Port:        cfg.HTTPServer.Port,
		Mode:        cfg.HTTPServer.Mode,
		ServiceName: cfg.Tracing.ServiceName,
		Generator:   dispatcher,
	})
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
