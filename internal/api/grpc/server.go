// Package grpc serves the standard health and reflection services for
// orchestration health checks.
package grpc

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"equiptrack-backend/internal/api/grpc/interceptor"
	"equiptrack-backend/internal/logger"
)

// ServiceName is the health entry that tracks the store connection.
const ServiceName = "equiptrack.Desk"

type Server struct {
	grpc   *grpc.Server
	health *health.Server
	check  func(ctx context.Context) error
}

// NewServer builds the server. check reports whether the backing store is
// reachable; nil means always healthy.
func NewServer(check func(ctx context.Context) error) *Server {
	s := &Server{
		grpc:   grpc.NewServer(grpc.UnaryInterceptor(interceptor.Unary())),
		health: health.NewServer(),
		check:  check,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *Server) Serve(lis net.Listener) error {
	logger.Info("gRPC health server listening", "address", lis.Addr().String())
	return s.grpc.Serve(lis)
}

// Watch checks the store every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	if s.check == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.checkStore(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) checkStore(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.check(ctx); err != nil {
		logger.Warn("Store health check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
}

// Stop reports NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
