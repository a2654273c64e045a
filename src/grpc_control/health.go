// Package grpc_control exposes the agent's state to orchestration tooling
// through the standard gRPC health protocol.
package grpc_control

import (
	"context"
	"fmt"
	"net"

	"live-dashboard/src/logger"
	"live-dashboard/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// PushService is the health service name that follows the push channel.
const PushService = "live-dashboard.push"

// -----------------------------------------------------------------------------
// HealthService reports the process as SERVING once started, and PushService
// as SERVING only while the push channel is connected.
// -----------------------------------------------------------------------------

type HealthService struct {
	Config *models.MConfig
	Logger *logger.Logger

	server *grpc.Server
	health *health.Server
}

func NewHealthService(cfg *models.MConfig, log *logger.Logger) *HealthService {
	s := &HealthService{
		Config: cfg,
		Logger: log,
		server: grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(s.server, s.health)

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(PushService, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// -----------------------------------------------------------------------------

// ObserveConnection mirrors a push connection change.
func (s *HealthService) ObserveConnection(status models.MConnectionStatus) {
	serving := healthpb.HealthCheckResponse_NOT_SERVING
	if status.Connected {
		serving = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(PushService, serving)
	s.Logger.Debug("gRPC health: %s is %s", PushService, serving)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start listens on the configured gRPC address and serves until ctx is
// cancelled.
func (s *HealthService) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.GrpcHost, s.Config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("grpc listen on %s: %w", addr, err)
	}
	s.Logger.Info("Starting gRPC health service on %s", addr)
	return s.Serve(ctx, lis)
}

// Serve serves on lis until ctx is cancelled.
func (s *HealthService) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.server.GracefulStop()
	}()

	if err := s.server.Serve(lis); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
