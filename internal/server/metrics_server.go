package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/oggyb/muzz-match/internal/metrics"
)

// StartMetricsServer exposes /metrics on addr until ctx is canceled.
// An empty addr disables the endpoint.
func StartMetricsServer(ctx context.Context, addr string, m *metrics.Metrics) error {
	if addr == "" {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	})
	defer stop()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
