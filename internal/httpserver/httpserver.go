package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// Handler exposes the routed engine, mainly for tests.
func (srv *HTTPServer) Handler() http.Handler { return srv.gin }

// Run serves until ctx is canceled, then shuts down gracefully. A listen
// failure is returned to the caller.
func (srv *HTTPServer) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", srv.host, srv.port)
	server := &http.Server{
		Addr:              addr,
		Handler:           srv.gin,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		srv.l.Info("Started server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		srv.l.Info("Shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			srv.l.Error("Server shutdown error", zap.Error(err))
			return err
		}
		srv.l.Info("API server stopped.")
		return nil
	})
	return g.Wait()
}
