// Package grpc runs the operations endpoint: the standard grpc.health.v1
// service, backed by a readiness probe and wrapped in logging and panic
// recovery interceptors.
package grpc

import (
	"context"
	"net"
	"sync"

	"github.com/dmitrijs2005/docusigner/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Probe reports whether a dependency (the database) is usable.
type Probe func(ctx context.Context) error

type GRPCServer struct {
	address string
	logger  logging.Logger
	health  *health.Server
	probe   Probe

	mu      sync.Mutex
	serving bool
}

func NewGRPCServer(a string, l logging.Logger, probe Probe) *GRPCServer {
	s := &GRPCServer{
		address: a,
		logger:  l.With("module", "grpc_server"),
		health:  health.NewServer(),
		probe:   probe,
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// SetServing flips the overall status. The app calls it once the REST
// server is up and again on shutdown.
func (s *GRPCServer) SetServing(on bool) {
	s.mu.Lock()
	s.serving = on
	s.mu.Unlock()
	s.setStatus(on)
}

func (s *GRPCServer) isServing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serving
}

func (s *GRPCServer) setStatus(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve runs on an existing listener until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, listen net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.recoverInterceptor, s.loggingInterceptor, s.probeInterceptor))
	healthpb.RegisterHealthServer(srv, s.health)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.mu.Lock()
		s.serving = false
		s.mu.Unlock()
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", listen.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
