package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/polargamesbr/rpg-sub006/internal/engine/service"
	"github.com/polargamesbr/rpg-sub006/internal/platform/timeouts"
)

// Server runs the engine HTTP API with graceful shutdown.
type Server struct {
	httpServer *http.Server
}

// NewServer binds the API routes to addr.
func NewServer(addr string, svc *service.Service) *Server {
	handler := NewHandler(svc)
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           http.TimeoutHandler(handler.Routes(), timeouts.Request, "request timed out"),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}
}

// Run serves until ctx is canceled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("msg=http_listen addr=%s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return <-errCh
}
