package grpc

import (
	"context"
	"time"

	"bikeshare-backend/internal/logger"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service entry reported alongside the overall
// server status.
const ServiceName = "bikeshare.v1.Bikeshare"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker drives the standard grpc.health.v1 service from storage
// reachability.
type HealthChecker struct {
	server   *health.Server
	db       Pinger
	interval time.Duration
}

func NewHealthChecker(db Pinger, interval time.Duration) *HealthChecker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthChecker{
		server:   health.NewServer(),
		db:       db,
		interval: interval,
	}
}

func (h *HealthChecker) Server() healthpb.HealthServer {
	return h.server
}

// Check pings storage once and publishes the result.
func (h *HealthChecker) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, h.interval/2)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.db.Ping(ctx); err != nil {
		logger.Warn("Storage ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return status
}

// Run checks storage every interval until ctx is done, then marks the server
// as shutting down.
func (h *HealthChecker) Run(ctx context.Context) error {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
