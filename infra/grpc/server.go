package grpc

import (
	"comments/pkg/config"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type Server struct {
	server   *grpc.Server
	health   *health.Server
	listener net.Listener
}

func NewServer(cfg *config.AppConfig) (*Server, error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	return newServer(lis), nil
}

func newServer(lis net.Listener) *Server {
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			loggingInterceptor,
			recoveryInterceptor,
		),
	)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	return &Server{
		server:   grpcServer,
		health:   healthServer,
		listener: lis,
	}
}

func (s *Server) Health() *health.Server {
	return s.health
}

func (s *Server) Start() error {
	zap.L().Info("gRPC server started successfully",
		zap.String("address", s.listener.Addr().String()))
	return s.server.Serve(s.listener)
}

func (s *Server) GracefulStop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}
