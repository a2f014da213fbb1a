package regression

import "math"

// MSE is the mean squared error between true and predicted values
func MSE(yTrue, yPred []float64) float64 {
	n := float64(len(yTrue))
	if n == 0 {
		return 0
	}
	s := 0.0
	for i := range yTrue {
		d := yPred[i] - yTrue[i]
		s += d * d
	}
	return s / n
}

// MAE is the mean absolute error, the average miss in dollars
func MAE(yTrue, yPred []float64) float64 {
	n := float64(len(yTrue))
	if n == 0 {
		return 0
	}
	s := 0.0
	for i := range yTrue {
		s += math.Abs(yPred[i] - yTrue[i])
	}
	return s / n
}

// RMSE is the root mean squared error, penalizing large misses
func RMSE(yTrue, yPred []float64) float64 {
	return math.Sqrt(MSE(yTrue, yPred))
}

// R2 is the coefficient of determination. Returns 0 when the target
// has no variance.
func R2(yTrue, yPred []float64) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range yTrue {
		mean += v
	}
	mean /= float64(len(yTrue))

	ssTot := 0.0
	ssRes := 0.0
	for i := range yTrue {
		d := yTrue[i] - mean
		ssTot += d * d
		r := yTrue[i] - yPred[i]
		ssRes += r * r
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// Metrics bundles the evaluation numbers shown on the performance page
type Metrics struct {
	TrainR2      float64 `json:"train_r2"`
	TestR2       float64 `json:"test_r2"`
	TestMAE      float64 `json:"test_mae"`
	TestRMSE     float64 `json:"test_rmse"`
	TrainSamples int     `json:"train_samples"`
	TestSamples  int     `json:"test_samples"`
}

// Evaluate computes train/test metrics for a fitted model
func (m *Model) Evaluate(XTrain [][]float64, yTrain []float64, XTest [][]float64, yTest []float64) (Metrics, error) {
	predTrain, err := m.Predict(XTrain)
	if err != nil {
		return Metrics{}, err
	}
	predTest, err := m.Predict(XTest)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		TrainR2:      R2(yTrain, predTrain),
		TestR2:       R2(yTest, predTest),
		TestMAE:      MAE(yTest, predTest),
		TestRMSE:     RMSE(yTest, predTest),
		TrainSamples: len(yTrain),
		TestSamples:  len(yTest),
	}, nil
}
