// Package regression implements the house price model: a linear
// regression trained with mini-batch gradient descent on standardized
// features, plus the evaluation metrics reported by the dashboard.
package regression

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"
	"time"
)

// Options holds training hyperparameters
type Options struct {
	LearningRate float64
	Epochs       int
	BatchSize    int
	Seed         int64
}

// DefaultOptions returns sensible training defaults
func DefaultOptions() Options {
	return Options{
		LearningRate: 0.01,
		Epochs:       200,
		BatchSize:    64,
		Seed:         42,
	}
}

// Model is a trained linear price model. Feature standardization
// parameters are part of the model so serving-time rows go through the
// exact transform used during training. The target is fitted in
// z-score space and mapped back on predict, which keeps gradient
// descent stable for dollar-scale targets.
type Model struct {
	Columns []string  `json:"columns"`
	Means   []float64 `json:"means"`
	Stds    []float64 `json:"stds"`
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`

	TargetMean float64 `json:"target_mean"`
	TargetStd  float64 `json:"target_std"`

	TrainedAt    time.Time `json:"trained_at"`
	Epochs       int       `json:"epochs"`
	LearningRate float64   `json:"learning_rate"`
	Samples      int       `json:"samples"`
}

// Fit trains a linear regression on X (rows of features) against y.
// The column list must match the feature order of X.
func Fit(X [][]float64, y []float64, columns []string, opts Options) (*Model, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("no training samples")
	}
	if len(X) != len(y) {
		return nil, fmt.Errorf("feature rows (%d) and targets (%d) differ", len(X), len(y))
	}
	nFeatures := len(X[0])
	if nFeatures != len(columns) {
		return nil, fmt.Errorf("feature count (%d) and column count (%d) differ", nFeatures, len(columns))
	}
	if opts.Epochs < 1 || opts.BatchSize < 1 || opts.LearningRate <= 0 {
		return nil, fmt.Errorf("invalid training options: %+v", opts)
	}

	m := &Model{
		Columns:      append([]string(nil), columns...),
		TrainedAt:    time.Now().UTC(),
		Epochs:       opts.Epochs,
		LearningRate: opts.LearningRate,
		Samples:      len(X),
	}
	m.fitScaler(X, y)

	// Standardize once up front
	Z := make([][]float64, len(X))
	for i, row := range X {
		Z[i] = m.transform(row)
	}
	yz := make([]float64, len(y))
	for i, v := range y {
		yz[i] = (v - m.TargetMean) / m.TargetStd
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	m.Weights = make([]float64, nFeatures)
	for i := range m.Weights {
		m.Weights[i] = rng.NormFloat64() * 0.01
	}

	for ep := 0; ep < opts.Epochs; ep++ {
		indices := rng.Perm(len(Z))
		for start := 0; start < len(indices); start += opts.BatchSize {
			end := start + opts.BatchSize
			if end > len(indices) {
				end = len(indices)
			}
			batch := indices[start:end]
			m.step(Z, yz, batch, opts.LearningRate)
		}
	}

	return m, nil
}

// step applies one mini-batch gradient update
func (m *Model) step(Z [][]float64, yz []float64, batch []int, lr float64) {
	n := float64(len(batch))
	gW := make([]float64, len(m.Weights))
	gb := 0.0

	for _, i := range batch {
		row := Z[i]
		yhat := m.Bias
		for j, v := range row {
			yhat += m.Weights[j] * v
		}
		// d(MSE)/d(yhat)
		d := 2 * (yhat - yz[i]) / n
		for j, v := range row {
			gW[j] += d * v
		}
		gb += d
	}

	for j := range m.Weights {
		m.Weights[j] -= lr * gW[j]
	}
	m.Bias -= lr * gb
}

// fitScaler records per-column mean/std and the target distribution
func (m *Model) fitScaler(X [][]float64, y []float64) {
	n := float64(len(X))
	nFeatures := len(m.Columns)

	m.Means = make([]float64, nFeatures)
	m.Stds = make([]float64, nFeatures)

	for j := 0; j < nFeatures; j++ {
		sum := 0.0
		for _, row := range X {
			sum += row[j]
		}
		mean := sum / n
		sumSq := 0.0
		for _, row := range X {
			d := row[j] - mean
			sumSq += d * d
		}
		m.Means[j] = mean
		m.Stds[j] = math.Sqrt(sumSq / n)
	}

	sum := 0.0
	for _, v := range y {
		sum += v
	}
	m.TargetMean = sum / n
	sumSq := 0.0
	for _, v := range y {
		d := v - m.TargetMean
		sumSq += d * d
	}
	m.TargetStd = math.Sqrt(sumSq / n)
	if m.TargetStd == 0 {
		m.TargetStd = 1
	}
}

// transform standardizes one raw feature row. Constant columns map to 0.
func (m *Model) transform(row []float64) []float64 {
	z := make([]float64, len(row))
	for j, v := range row {
		if m.Stds[j] != 0 {
			z[j] = (v - m.Means[j]) / m.Stds[j]
		}
	}
	return z
}

// PredictOne returns the estimated price for a single raw feature row
func (m *Model) PredictOne(row []float64) (float64, error) {
	if len(row) != len(m.Weights) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.Weights), len(row))
	}
	z := m.transform(row)
	yhat := m.Bias
	for j, v := range z {
		yhat += m.Weights[j] * v
	}
	return yhat*m.TargetStd + m.TargetMean, nil
}

// Predict returns estimates for all rows in X, parallelized across
// CPU cores for large batches.
func (m *Model) Predict(X [][]float64) ([]float64, error) {
	if len(X) == 0 {
		return nil, nil
	}
	for i, row := range X {
		if len(row) != len(m.Weights) {
			return nil, fmt.Errorf("row %d: expected %d features, got %d", i, len(m.Weights), len(row))
		}
	}

	pred := make([]float64, len(X))
	workers := runtime.GOMAXPROCS(0)
	rowsPerWorker := (len(X) + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		s := w * rowsPerWorker
		e := s + rowsPerWorker
		if e > len(X) {
			e = len(X)
		}
		if s >= e {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				z := m.transform(X[i])
				yhat := m.Bias
				for j, v := range z {
					yhat += m.Weights[j] * v
				}
				pred[i] = yhat*m.TargetStd + m.TargetMean
			}
		}(s, e)
	}
	wg.Wait()
	return pred, nil
}

// FeatureImportance holds the normalized weight share of one feature
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
	Weight     float64 `json:"weight"`
}

// Importances ranks features by |weight| on the standardized scale,
// normalized so the shares sum to 1.
func (m *Model) Importances() []FeatureImportance {
	total := 0.0
	for _, w := range m.Weights {
		total += math.Abs(w)
	}

	out := make([]FeatureImportance, len(m.Columns))
	for j, col := range m.Columns {
		share := 0.0
		if total != 0 {
			share = math.Abs(m.Weights[j]) / total
		}
		out[j] = FeatureImportance{
			Feature:    col,
			Importance: share,
			Weight:     m.Weights[j],
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Importance > out[b].Importance
	})
	return out
}
