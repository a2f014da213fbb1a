package services

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"houselytics/internal/config"
	"houselytics/internal/dataset"
	apierrors "houselytics/internal/errors"
	"houselytics/internal/preprocess"
	"houselytics/internal/regression"
)

// DataStore lazily loads the cleaned training dataset and caches it
// until invalidated by a new training run.
type DataStore struct {
	paths  *config.Paths
	target string

	mu      sync.RWMutex
	frame   *dataset.Frame
	medians map[string]float64
}

// NewDataStore creates a store reading the cleaned dataset from paths
func NewDataStore(paths *config.Paths, target string) *DataStore {
	return &DataStore{paths: paths, target: target}
}

// Frame returns the cleaned training frame, loading it on first use
func (s *DataStore) Frame() (*dataset.Frame, error) {
	s.mu.RLock()
	if s.frame != nil {
		frame := s.frame
		s.mu.RUnlock()
		return frame, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frame != nil {
		return s.frame, nil
	}

	if !config.FileExists(s.paths.CleanTrainCSV) {
		return nil, apierrors.ErrDatasetNotFound
	}
	table, err := dataset.ReadCSVTable(s.paths.CleanTrainCSV)
	if err != nil {
		return nil, fmt.Errorf("load cleaned dataset: %w", err)
	}
	// Cleaned files are fully numeric so encoding is a passthrough
	frame := preprocess.EncodeTable(table)
	if !frameHasColumn(frame, s.target) {
		return nil, fmt.Errorf("cleaned dataset missing target column %s", s.target)
	}

	s.frame = frame
	s.medians = frame.Drop(s.target).Medians()
	return s.frame, nil
}

func frameHasColumn(f *dataset.Frame, name string) bool {
	return f.ColumnIndex(name) >= 0
}

// Medians returns per-feature training medians used for imputation
func (s *DataStore) Medians() (map[string]float64, error) {
	if _, err := s.Frame(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.medians, nil
}

// Target returns the configured target column name
func (s *DataStore) Target() string {
	return s.target
}

// Invalidate drops the cached frame so the next read reloads from disk
func (s *DataStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = nil
	s.medians = nil
}

// ModelStore lazily loads the trained model artifact and its metrics
type ModelStore struct {
	paths *config.Paths

	mu      sync.RWMutex
	model   *regression.Model
	metrics *regression.Metrics
}

// NewModelStore creates a store reading artifacts from paths
func NewModelStore(paths *config.Paths) *ModelStore {
	return &ModelStore{paths: paths}
}

// Model returns the trained model, loading the artifact on first use
func (s *ModelStore) Model() (*regression.Model, error) {
	s.mu.RLock()
	if s.model != nil {
		model := s.model
		s.mu.RUnlock()
		return model, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		return s.model, nil
	}

	model, err := regression.Load(s.paths.ModelFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apierrors.ErrModelNotFound
		}
		return nil, fmt.Errorf("load model artifact: %w", err)
	}
	s.model = model
	return s.model, nil
}

// Metrics returns the evaluation metrics saved alongside the model
func (s *ModelStore) Metrics() (regression.Metrics, error) {
	s.mu.RLock()
	if s.metrics != nil {
		metrics := *s.metrics
		s.mu.RUnlock()
		return metrics, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metrics != nil {
		return *s.metrics, nil
	}

	metrics, err := regression.LoadMetrics(s.paths.MetricsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return regression.Metrics{}, apierrors.ErrModelNotFound
		}
		return regression.Metrics{}, fmt.Errorf("load model metrics: %w", err)
	}
	s.metrics = &metrics
	return metrics, nil
}

// Invalidate drops cached artifacts so the next read reloads from disk
func (s *ModelStore) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.model = nil
	s.metrics = nil
}
