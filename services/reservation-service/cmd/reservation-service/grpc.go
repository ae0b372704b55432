package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/md-rashed-zaman/courtreserve/libs/grpcx"
	"github.com/md-rashed-zaman/courtreserve/libs/runtime"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const healthPollInterval = 10 * time.Second

// startGRPCServer serves grpc.health.v1 on addr. The service status follows
// the readiness checks; the overall ("") status stays SERVING while the
// process runs.
func startGRPCServer(ctx context.Context, logger *slog.Logger, addr, service string, checks []runtime.ReadyCheck) (net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerLoggingInterceptor(logger),
		),
	)
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	updateHealth(ctx, hs, service, checks)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(healthPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				hs.Shutdown()
				srv.GracefulStop()
				logger.Info("grpc server stopped")
				return
			case <-ticker.C:
				updateHealth(ctx, hs, service, checks)
			}
		}
	}()

	return lis.Addr(), nil
}

func updateHealth(ctx context.Context, hs *health.Server, service string, checks []runtime.ReadyCheck) {
	status := healthpb.HealthCheckResponse_SERVING
	if len(runtime.FailedChecks(ctx, checks)) > 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus(service, status)
}

// healthcheck backs the "healthcheck" subcommand used by container health checks.
func healthcheck(logger *slog.Logger, addr, service string) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := grpcx.CheckHealth(ctx, addr, service); err != nil {
		logger.Error("healthcheck failed", "addr", addr, "err", err)
		return 1
	}
	return 0
}
