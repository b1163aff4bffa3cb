// internal/control/health.go
package control

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/jdharms/termynal/internal/engine"
	"github.com/jdharms/termynal/internal/player"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthReporter publishes one gRPC health service per player instance:
// SERVING while the animation plays, NOT_SERVING otherwise
type HealthReporter struct {
	logger *logrus.Logger
	health *health.Server

	mu       sync.Mutex
	grpc     *grpc.Server
	listener net.Listener
}

// NewHealthReporter creates a reporter with no tracked players
func NewHealthReporter(logger *logrus.Logger) *HealthReporter {
	return &HealthReporter{
		logger: logger,
		health: health.NewServer(),
	}
}

// Track follows p's lifecycle events. The returned function stops
// tracking and marks the service NOT_SERVING.
func (h *HealthReporter) Track(p *player.Player) func() error {
	service := p.InstanceID()

	initial := healthpb.HealthCheckResponse_NOT_SERVING
	if p.IsRunning() {
		initial = healthpb.HealthCheckResponse_SERVING
	}
	h.set(service, initial)

	serving := func(engine.Event) { h.set(service, healthpb.HealthCheckResponse_SERVING) }
	notServing := func(engine.Event) { h.set(service, healthpb.HealthCheckResponse_NOT_SERVING) }

	subs := []engine.Subscription{
		p.On(engine.EventStart, serving),
		p.On(engine.EventComplete, notServing),
		p.On(engine.EventStop, notServing),
		p.On(engine.EventError, notServing),
	}

	return func() error {
		for _, sub := range subs {
			p.Off(sub)
		}
		h.set(service, healthpb.HealthCheckResponse_NOT_SERVING)
		return nil
	}
}

func (h *HealthReporter) set(service string, status healthpb.HealthCheckResponse_ServingStatus) {
	h.health.SetServingStatus(service, status)
	h.logger.WithFields(logrus.Fields{
		"service": service,
		"status":  status.String(),
	}).Debug("Health status changed")
}

// Check returns the current status of a service
func (h *HealthReporter) Check(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := h.health.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_SERVICE_UNKNOWN, err
	}
	return resp.GetStatus(), nil
}

// Start serves the gRPC health API on addr
func (h *HealthReporter) Start(addr string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grpc != nil {
		return fmt.Errorf("health server is already running")
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	h.grpc = grpc.NewServer()
	healthpb.RegisterHealthServer(h.grpc, h.health)
	h.listener = lis

	go func(srv *grpc.Server) {
		h.logger.WithField("addr", lis.Addr().String()).Info("Starting health server")
		if err := srv.Serve(lis); err != nil {
			h.logger.WithError(err).Error("Health server error")
		}
	}(h.grpc)

	return nil
}

// Addr returns the address the health server listens on
func (h *HealthReporter) Addr() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Stop marks every service NOT_SERVING and stops the gRPC server
func (h *HealthReporter) Stop() {
	h.health.Shutdown()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.grpc != nil {
		h.grpc.GracefulStop()
		h.grpc = nil
		h.listener = nil
		h.logger.Info("Health server stopped")
	}
}
