package services

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"neurphys/internal/config"
	"neurphys/pkg/contracts"
)

// ComponentStatus is the health of one subsystem.
type ComponentStatus struct {
	Status  string `json:"status"` // healthy|degraded|unhealthy
	Message string `json:"message,omitempty"`
}

// HealthStatus is the aggregate health report.
type HealthStatus struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentStatus `json:"components"`
}

// ClientCounter reports connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService reports service health for the /health endpoints.
type HealthService struct {
	paths     *config.Paths
	hub       ClientCounter
	operation *OperationService
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthService creates a health service.
func NewHealthService(paths *config.Paths, hub ClientCounter, operation *OperationService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		paths:     paths,
		hub:       hub,
		operation: operation,
		startedAt: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// Check runs all component checks and aggregates them. The overall status is
// unhealthy when any component is, degraded when any component is degraded.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	components := map[string]ComponentStatus{
		"data_dir":    s.checkWritableDir(s.paths.DataDir),
		"reports_dir": s.checkWritableDir(s.paths.ReportsDir),
		"websocket":   s.checkWebSocket(),
		"operations":  s.checkOperations(ctx),
	}

	overall := "healthy"
	for _, c := range components {
		switch c.Status {
		case "unhealthy":
			overall = "unhealthy"
		case "degraded":
			if overall == "healthy" {
				overall = "degraded"
			}
		}
	}

	if overall != "healthy" {
		s.logger.WarnContext(ctx, "health check not healthy",
			slog.String("status", overall))
	}

	return HealthStatus{
		Status:     overall,
		Version:    contracts.Version,
		Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
		Timestamp:  time.Now(),
		Components: components,
	}
}

// Version returns the build and version metadata.
func (s *HealthService) Version(ctx context.Context) contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

func (s *HealthService) checkWritableDir(dir string) ComponentStatus {
	info, err := os.Stat(dir)
	if err != nil {
		return ComponentStatus{Status: "unhealthy", Message: err.Error()}
	}
	if !info.IsDir() {
		return ComponentStatus{Status: "unhealthy", Message: dir + " is not a directory"}
	}

	probe := filepath.Join(dir, ".health")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return ComponentStatus{Status: "degraded", Message: "directory is not writable"}
	}
	os.Remove(probe)

	return ComponentStatus{Status: "healthy"}
}

func (s *HealthService) checkWebSocket() ComponentStatus {
	if s.hub == nil {
		return ComponentStatus{Status: "degraded", Message: "hub not configured"}
	}
	return ComponentStatus{Status: "healthy"}
}

func (s *HealthService) checkOperations(ctx context.Context) ComponentStatus {
	if s.operation == nil {
		return ComponentStatus{Status: "degraded", Message: "operation service not configured"}
	}

	metrics := s.operation.Metrics(ctx)
	if failed, ok := metrics["failed_operations"].(int); ok && failed > 0 {
		return ComponentStatus{Status: "healthy", Message: "recent operations failed; see operation list"}
	}
	return ComponentStatus{Status: "healthy"}
}
