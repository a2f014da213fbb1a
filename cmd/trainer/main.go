package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"houselytics/internal/config"
	"houselytics/internal/infrastructure"
	"houselytics/internal/operations"
	"houselytics/internal/regression"
)

func main() {
	baseDir := flag.String("base", "", "base directory for data, reports and logs (defaults to configuration)")
	timeout := flag.Duration("timeout", 10*time.Minute, "maximum time for a training run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *baseDir != "" {
		cfg.Paths.BaseDir = *baseDir
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer infrastructure.CloseLogger()

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		logger.Error("Failed to resolve paths", "error", err)
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("Failed to create directories", "error", err)
		os.Exit(1)
	}

	registry, err := operations.DefaultRegistry()
	if err != nil {
		logger.Error("Failed to build pipeline registry", "error", err)
		os.Exit(1)
	}
	manager := operations.NewManager(registry, nil, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	logger.Info("Starting training run",
		slog.String("train_csv", paths.TrainCSV),
		slog.String("model_file", paths.ModelFile))

	state, err := manager.Start(ctx, operations.RunConfig{
		Paths: paths,
		Model: cfg.Model,
	})
	if err != nil {
		logger.Error("Training run failed to start", "error", err)
		os.Exit(1)
	}

	snap := state.Snapshot()
	if snap.Status != operations.RunStatusCompleted {
		logger.Error("Training run did not complete",
			slog.String("run_id", snap.ID),
			slog.String("status", string(snap.Status)),
			slog.String("error", snap.Error))
		os.Exit(1)
	}

	metrics, err := regression.LoadMetrics(paths.MetricsFile)
	if err != nil {
		logger.Error("Failed to read training metrics", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Training run %s completed\n", snap.ID)
	fmt.Printf("  Train R²:      %.4f (%d samples)\n", metrics.TrainR2, metrics.TrainSamples)
	fmt.Printf("  Test R²:       %.4f (%d samples)\n", metrics.TestR2, metrics.TestSamples)
	fmt.Printf("  Test MAE:      %.2f\n", metrics.TestMAE)
	fmt.Printf("  Test RMSE:     %.2f\n", metrics.TestRMSE)
	fmt.Printf("  Model written: %s\n", paths.ModelFile)
}
