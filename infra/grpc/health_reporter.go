package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service entry reported next to the overall "" entry.
const ServiceName = "comments.v1.CommentService"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter mirrors the document store's reachability into the gRPC
// health service.
type HealthReporter struct {
	health   *health.Server
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
}

func NewHealthReporter(healthServer *health.Server, pinger Pinger, interval, timeout time.Duration) *HealthReporter {
	return &HealthReporter{
		health:   healthServer,
		pinger:   pinger,
		interval: interval,
		timeout:  timeout,
	}
}

// Check pings once and publishes the result.
func (r *HealthReporter) Check(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	servingStatus := grpc_health_v1.HealthCheckResponse_SERVING
	if err := r.pinger.Ping(pingCtx); err != nil {
		zap.L().Warn("Document store ping failed", zap.Error(err))
		servingStatus = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}

	r.health.SetServingStatus("", servingStatus)
	r.health.SetServingStatus(ServiceName, servingStatus)
	return servingStatus
}

// Run checks on every tick until ctx is done.
func (r *HealthReporter) Run(ctx context.Context) {
	r.Check(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Check(ctx)
		}
	}
}
