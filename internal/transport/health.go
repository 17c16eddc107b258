package transport

import (
	"context"
	"time"

	"github.com/goodnatureofminers/txancestry-backend/internal/clock"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultHealthInterval = 15 * time.Second

// HealthChecker mirrors node reachability into a gRPC health server.
type HealthChecker struct {
	pinger   Pinger
	server   *health.Server
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewHealthChecker returns a checker probing pinger every interval.
func NewHealthChecker(pinger Pinger, server *health.Server, interval time.Duration, logger *zap.Logger) *HealthChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	timeout := interval
	if timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &HealthChecker{
		pinger:   pinger,
		server:   server,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Check pings once and updates the overall serving status.
func (h *HealthChecker) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := h.pinger.Ping(ctx); err != nil {
		h.logger.Warn("node health check failed", zap.Error(err))
		h.server.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		return false
	}
	h.server.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return true
}

// Run checks until ctx is done, then marks the server as shutting down.
func (h *HealthChecker) Run(ctx context.Context) {
	for {
		h.Check(ctx)
		if err := clock.SleepWithContext(ctx, h.interval); err != nil {
			h.server.Shutdown()
			return
		}
	}
}
