package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name under which the account service reports health.
const ServiceName = "accountkeeper.AccountService"

// GRPCServer exposes the account operations, encoded with the JSON codec,
// next to the standard grpc.health.v1 service.
type GRPCServer struct {
	address  string
	logger   logging.Logger
	health   *health.Server
	accounts AccountService
}

// NewGRPCServer builds the server. A nil svc serves health only.
func NewGRPCServer(a string, l logging.Logger, svc AccountService) *GRPCServer {
	return &GRPCServer{
		address:  a,
		logger:   l.With("module", "grpc_server"),
		health:   health.NewServer(),
		accounts: svc,
	}
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {

	// creates gRPC-server
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))

	// registers services
	healthpb.RegisterHealthServer(srv, s.health)
	if s.accounts != nil {
		srv.RegisterService(s.accountServiceDesc(), s.accounts)
	}
	s.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gPRC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
