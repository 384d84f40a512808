// Package shutdown runs the admin and gateway HTTP servers and drains them
// cleanly on SIGTERM or SIGINT. In-flight entitlement checks and admin
// mutations get drainTimeout to finish before the process exits.
package shutdown

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// GracefulServe starts every server and blocks until a shutdown signal or the
// first listener error. On signal it stops accepting new connections on all
// servers and drains active ones up to drainTimeout. The first error seen,
// from serving or from draining, is returned.
func GracefulServe(servers []*http.Server, drainTimeout time.Duration, logger *slog.Logger) error {
	serverErr := make(chan error, len(servers))
	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErr <- err
			}
		}(srv)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	logger.Info("draining connections", "timeout", drainTimeout.String())
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		wg.Add(1)
		go func(srv *http.Server) {
			defer wg.Done()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown failed", "addr", srv.Addr, "error", err)
				errCh <- err
			}
		}(srv)
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return err
	}

	logger.Info("servers stopped cleanly")
	return nil
}
