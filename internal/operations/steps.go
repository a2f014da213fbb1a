package operations

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"houselytics/internal/dataset"
	"houselytics/internal/exporter"
	"houselytics/internal/preprocess"
	"houselytics/internal/regression"
)

// LoadStep reads the raw training CSV into the run state
type LoadStep struct{}

func (s *LoadStep) ID() string   { return "load" }
func (s *LoadStep) Name() string { return "Load dataset" }

func (s *LoadStep) Execute(ctx context.Context, state *RunState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	table, err := dataset.ReadCSVTable(state.Config.Paths.TrainCSV)
	if err != nil {
		return fmt.Errorf("load step: %w", err)
	}
	if table.NumRows() == 0 {
		return fmt.Errorf("load step: training file %s has no records", state.Config.Paths.TrainCSV)
	}
	if !table.HasColumn(state.Config.Model.TargetColumn) {
		return fmt.Errorf("load step: target column %s not present", state.Config.Model.TargetColumn)
	}

	state.RawTable = table
	return nil
}

// CleanStep encodes ordinal columns and imputes missing values
type CleanStep struct{}

func (s *CleanStep) ID() string   { return "clean" }
func (s *CleanStep) Name() string { return "Clean and encode" }

func (s *CleanStep) Execute(ctx context.Context, state *RunState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state.RawTable == nil {
		return fmt.Errorf("clean step: no raw table loaded")
	}

	target := state.Config.Model.TargetColumn
	frame := preprocess.CleanTrainingTable(state.RawTable, target)
	if frame.NumRows() == 0 {
		return fmt.Errorf("clean step: no rows with a %s value", target)
	}

	features := frame.Drop(target)
	state.CleanFrame = frame
	state.FeatureColumns = features.Columns
	state.TrainMedians = features.Medians()
	return nil
}

// TrainStep fits the regression model on the train split
type TrainStep struct{}

func (s *TrainStep) ID() string   { return "train" }
func (s *TrainStep) Name() string { return "Train model" }

func (s *TrainStep) Execute(ctx context.Context, state *RunState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state.CleanFrame == nil {
		return fmt.Errorf("train step: no cleaned frame")
	}

	cfg := state.Config.Model
	X, y, columns, err := dataset.SplitFrame(state.CleanFrame, cfg.TargetColumn)
	if err != nil {
		return fmt.Errorf("train step: %w", err)
	}

	XTrain, _, yTrain, _ := dataset.TrainTestSplit(X, y, cfg.TestFraction, cfg.SplitSeed)
	if len(XTrain) == 0 {
		return fmt.Errorf("train step: empty training split")
	}

	model, err := regression.Fit(XTrain, yTrain, columns, regression.Options{
		LearningRate: cfg.LearningRate,
		Epochs:       cfg.Epochs,
		BatchSize:    cfg.BatchSize,
		Seed:         cfg.SplitSeed,
	})
	if err != nil {
		return fmt.Errorf("train step: %w", err)
	}

	state.Model = model
	return nil
}

// EvaluateStep computes train/test metrics on the same seeded split
type EvaluateStep struct{}

func (s *EvaluateStep) ID() string   { return "evaluate" }
func (s *EvaluateStep) Name() string { return "Evaluate model" }

func (s *EvaluateStep) Execute(ctx context.Context, state *RunState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state.Model == nil {
		return fmt.Errorf("evaluate step: no trained model")
	}

	cfg := state.Config.Model
	X, y, _, err := dataset.SplitFrame(state.CleanFrame, cfg.TargetColumn)
	if err != nil {
		return fmt.Errorf("evaluate step: %w", err)
	}
	XTrain, XTest, yTrain, yTest := dataset.TrainTestSplit(X, y, cfg.TestFraction, cfg.SplitSeed)

	metrics, err := state.Model.Evaluate(XTrain, yTrain, XTest, yTest)
	if err != nil {
		return fmt.Errorf("evaluate step: %w", err)
	}
	state.Metrics = metrics
	return nil
}

// ExportStep persists the model artifact, metrics, and cleaned CSV
type ExportStep struct{}

func (s *ExportStep) ID() string   { return "export" }
func (s *ExportStep) Name() string { return "Export artifacts" }

func (s *ExportStep) Execute(ctx context.Context, state *RunState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state.Model == nil {
		return fmt.Errorf("export step: no trained model")
	}

	paths := state.Config.Paths

	// The three artifacts are independent files; write them concurrently.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := state.Model.Save(paths.ModelFile); err != nil {
			return fmt.Errorf("export step: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := regression.SaveMetrics(paths.MetricsFile, state.Metrics); err != nil {
			return fmt.Errorf("export step: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Cleaned training data for the insights endpoints
		records := make([][]string, state.CleanFrame.NumRows())
		for i, row := range state.CleanFrame.Data {
			rec := make([]string, len(row))
			for j, v := range row {
				rec[j] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			records[i] = rec
		}
		writer := exporter.NewCSVWriter()
		if err := writer.WriteCSV(paths.CleanTrainCSV, exporter.WriteOptions{
			Headers: state.CleanFrame.Columns,
			Records: records,
		}); err != nil {
			return fmt.Errorf("export step: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// DefaultRegistry returns a registry loaded with the standard
// training pipeline in execution order.
func DefaultRegistry() (*Registry, error) {
	registry := NewRegistry()
	steps := []Step{
		&LoadStep{},
		&CleanStep{},
		&TrainStep{},
		&EvaluateStep{},
		&ExportStep{},
	}
	for _, step := range steps {
		if err := registry.Register(step); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
