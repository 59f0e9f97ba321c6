// Package health поднимает gRPC-сервер со стандартным сервисом grpc.health.v1
// для фоновых процессов, у которых нет HTTP-интерфейса.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Server — gRPC-сервер проверки состояния.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	service    string
	log        *slog.Logger
}

// New открывает listener на address и регистрирует сервис здоровья.
// service — имя, под которым процесс сообщает свой статус; до вызова SetServing
// статус NOT_SERVING.
func New(address, service string, log *slog.Logger) (*Server, error) {
	const op = "grpc.health.New"
	lis, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hs := health.NewServer()
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	return &Server{
		grpcServer: grpcServer,
		health:     hs,
		listener:   lis,
		service:    service,
		log:        log,
	}, nil
}

// Addr возвращает фактический адрес listener.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// SetServing переключает статус процесса.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(s.service, status)
	s.health.SetServingStatus("", status)
}

// Run обслуживает запросы до отмены ctx.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gRPC health server listening", slog.String("address", s.Addr()))
		errCh <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}
