package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"houselytics/internal/config"
)

// HealthStatus is the liveness response
type HealthStatus struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}

// CheckResult is one readiness check outcome
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ReadinessStatus is the readiness response. Ready means the service
// can answer insight and prediction requests.
type ReadinessStatus struct {
	Ready     bool                   `json:"ready"`
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
}

// VersionInfo describes the running build
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// ClientCounter reports connected websocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService answers liveness and readiness probes
type HealthService struct {
	version   string
	buildTime string
	paths     *config.Paths
	clients   ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// NewHealthService creates a health service
func NewHealthService(version, buildTime string, paths *config.Paths, clients ClientCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     paths,
		clients:   clients,
		startTime: time.Now(),
		logger:    logger.With(slog.String("service", "health")),
	}
}

// Liveness reports that the process is up
func (s *HealthService) Liveness(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "healthy",
		Version:   s.version,
		Timestamp: time.Now(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}
}

// Readiness verifies the artifacts the read endpoints depend on
func (s *HealthService) Readiness(ctx context.Context) ReadinessStatus {
	checks := map[string]CheckResult{
		"training_data":  fileCheck(s.paths.TrainCSV, "raw training data present"),
		"cleaned_data":   fileCheck(s.paths.CleanTrainCSV, "cleaned dataset present"),
		"model_artifact": fileCheck(s.paths.ModelFile, "model artifact present"),
		"model_metrics":  fileCheck(s.paths.MetricsFile, "model metrics present"),
	}
	if s.clients != nil {
		checks["websocket"] = CheckResult{Status: "up"}
	}

	ready := true
	for _, check := range checks {
		if check.Status != "up" {
			ready = false
			break
		}
	}

	status := ReadinessStatus{
		Ready:     ready,
		Status:    "ready",
		Checks:    checks,
		Timestamp: time.Now(),
	}
	if !ready {
		status.Status = "not_ready"
		s.logger.WarnContext(ctx, "readiness check failed")
	}
	return status
}

// Version returns build information
func (s *HealthService) Version(ctx context.Context) VersionInfo {
	return VersionInfo{
		Version:   s.version,
		BuildTime: s.buildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

func fileCheck(path, okMessage string) CheckResult {
	if config.FileExists(path) {
		return CheckResult{Status: "up", Message: okMessage}
	}
	return CheckResult{Status: "down", Message: path + " missing"}
}
