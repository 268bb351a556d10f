package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Serve starts an HTTP server for handler on the given address. The
// server is shut down when ctx is done.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) *http.Server {
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("api listening", "addr", addr)
	return srv
}
