package regression

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Save writes the model artifact as JSON. The file is written to a
// temp path first and renamed so a crashed run never leaves a
// half-written model behind.
func (m *Model) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace model file: %w", err)
	}
	return nil
}

// Load reads a model artifact from disk and validates its shape
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse model file: %w", err)
	}

	n := len(m.Columns)
	if n == 0 {
		return nil, fmt.Errorf("model file %s has no feature columns", path)
	}
	if len(m.Weights) != n || len(m.Means) != n || len(m.Stds) != n {
		return nil, fmt.Errorf("model file %s is inconsistent: %d columns, %d weights, %d means, %d stds",
			path, n, len(m.Weights), len(m.Means), len(m.Stds))
	}
	if m.TargetStd == 0 {
		return nil, fmt.Errorf("model file %s has zero target std", path)
	}
	return &m, nil
}

// SaveMetrics persists evaluation results next to the model artifact
func SaveMetrics(path string, metrics Metrics) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}

// LoadMetrics reads persisted evaluation results
func LoadMetrics(path string) (Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to read metrics file: %w", err)
	}
	var m Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return Metrics{}, fmt.Errorf("failed to parse metrics file: %w", err)
	}
	return m, nil
}
