package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/hellosso/internal/observability/logger"
)

// Serve levanta el servidor y lo apaga limpio cuando el contexto se cancela.
// Los requests en vuelo tienen hasta 10s para terminar.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Named("http").Info("apagando servidor HTTP")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
