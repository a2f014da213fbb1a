package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the single source of truth for all file locations used by
// the application. Relative configuration entries are resolved against
// the base directory.
type Paths struct {
	BaseDir    string
	DataDir    string
	ReportsDir string
	LogsDir    string
	WebDir     string

	// Well-known files
	TrainCSV      string
	InheritedCSV  string
	CleanTrainCSV string
	ModelFile     string
	MetricsFile   string
}

// NewPaths resolves all application paths from configuration. When no
// base directory is configured the current working directory is used.
func NewPaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	dataDir := resolve(base, cfg.DataDir)
	p := &Paths{
		BaseDir:    base,
		DataDir:    dataDir,
		ReportsDir: resolve(base, cfg.ReportsDir),
		LogsDir:    resolve(base, cfg.LogsDir),
		WebDir:     resolve(base, cfg.WebDir),

		TrainCSV:      resolve(dataDir, cfg.TrainCSV),
		InheritedCSV:  resolve(dataDir, cfg.InheritedCSV),
		CleanTrainCSV: filepath.Join(dataDir, "processed", "clean_train.csv"),
		ModelFile:     filepath.Join(dataDir, "model", "house_price_model.json"),
		MetricsFile:   filepath.Join(dataDir, "model", "model_metrics.json"),
	}
	return p, nil
}

func resolve(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// EnsureDirectories creates all directories the application writes to
func (p *Paths) EnsureDirectories() error {
	dirs := []string{
		p.DataDir,
		filepath.Join(p.DataDir, "processed"),
		filepath.Join(p.DataDir, "model"),
		p.ReportsDir,
		p.LogsDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ReportPath returns the full path for a generated report file
func (p *Paths) ReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}

// LogPath returns the full path for a log file
func (p *Paths) LogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// FileExists checks whether a file exists and is not a directory
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
