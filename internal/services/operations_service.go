package services

import (
	"context"
	"errors"
	"log/slog"

	"houselytics/internal/config"
	apierrors "houselytics/internal/errors"
	"houselytics/internal/infrastructure"
	"houselytics/internal/operations"
)

// OperationsService exposes training run control to the transport layer
type OperationsService struct {
	manager *operations.Manager
	paths   *config.Paths
	model   config.ModelConfig
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewOperationsService creates an operations service. The service
// registers a finish hook that invalidates the given stores so the
// next read sees the freshly exported artifacts.
func NewOperationsService(manager *operations.Manager, paths *config.Paths, model config.ModelConfig,
	data *DataStore, models *ModelStore, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *OperationsService {
	if logger == nil {
		logger = slog.Default()
	}
	s := &OperationsService{
		manager: manager,
		paths:   paths,
		model:   model,
		metrics: metrics,
		logger:  logger.With(slog.String("service", "operations")),
	}

	manager.OnFinish(func(snapshot operations.RunSnapshot) {
		if snapshot.Status == operations.RunStatusCompleted {
			data.Invalidate()
			models.Invalidate()
		}
		s.recordRun(snapshot)
	})
	return s
}

// Start launches a training run in the background and returns its
// snapshot immediately.
func (s *OperationsService) Start(ctx context.Context) (operations.RunSnapshot, error) {
	// The run outlives the HTTP request that triggered it
	runCtx := infrastructure.WithTraceID(context.Background(), infrastructure.GetTraceID(ctx))

	state, err := s.manager.StartAsync(runCtx, operations.RunConfig{
		Paths: s.paths,
		Model: s.model,
	})
	if err != nil {
		if errors.Is(err, operations.ErrRunInProgress) {
			return operations.RunSnapshot{}, apierrors.ErrTrainingInProgress
		}
		return operations.RunSnapshot{}, err
	}

	s.logger.InfoContext(ctx, "training run accepted",
		slog.String("run_id", state.ID))
	return state.Snapshot(), nil
}

// Get returns the snapshot of one training run
func (s *OperationsService) Get(ctx context.Context, id string) (operations.RunSnapshot, error) {
	state, ok := s.manager.Get(id)
	if !ok {
		return operations.RunSnapshot{}, apierrors.ErrRunNotFound
	}
	return state.Snapshot(), nil
}

// List returns snapshots of all known runs, newest first
func (s *OperationsService) List(ctx context.Context) []operations.RunSnapshot {
	states := s.manager.List()
	snapshots := make([]operations.RunSnapshot, len(states))
	for i, state := range states {
		snapshots[i] = state
	}
	return snapshots
}

func (s *OperationsService) recordRun(snapshot operations.RunSnapshot) {
	if s.metrics == nil {
		return
	}
	ctx := context.Background()
	s.metrics.TrainingRunsTotal.Add(ctx, 1)
	if snapshot.EndTime != nil {
		s.metrics.TrainingDuration.Record(ctx, snapshot.EndTime.Sub(snapshot.StartTime).Seconds())
	}
}
