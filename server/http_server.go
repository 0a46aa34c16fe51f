package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"shorts-publisher/infrastructure/logger"
)

// ListenAndServe binds srv.Addr and runs Serve on it.
func ListenAndServe(ctx context.Context, srv *http.Server, grace time.Duration) error {
	l, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, srv, l, grace)
}

// Serve runs srv on l until ctx is done, then shuts it down. Request contexts derive
// from ctx, so long-lived streams end with it. Connections still open after grace
// are closed and do not count as a failure.
func Serve(ctx context.Context, srv *http.Server, l net.Listener, grace time.Duration) error {
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(l) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Callback server did not drain in time, closing remaining connections")
		_ = srv.Close()
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
