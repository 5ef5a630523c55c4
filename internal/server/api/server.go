package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/docusigner/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// Server serves a Router until its context is cancelled.
type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
	// ready, when set, is closed once the listener is bound.
	ready chan struct{}
}

func NewServer(address string, r *Router, logger logging.Logger) *Server {
	return &Server{
		address: address,
		handler: r.Handler(),
		logger:  logger.With("module", "http_server"),
		ready:   make(chan struct{}),
	}
}

// Ready is closed when the server accepts connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())
	close(s.ready)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
