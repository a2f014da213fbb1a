package dataset

import "math/rand"

// TrainTestSplit splits X, Y into train and test sets. The shuffle is
// driven by a seeded generator so a given seed always produces the
// same split and reported metrics stay reproducible.
func TrainTestSplit(X [][]float64, Y []float64, testFraction float64, seed int64) (XTrain, XTest [][]float64, YTrain, YTest []float64) {
	n := len(X)
	rng := rand.New(rand.NewSource(seed))
	indices := rng.Perm(n)
	nTest := int(float64(n) * testFraction)
	for i := 0; i < n; i++ {
		if i < nTest {
			XTest = append(XTest, X[indices[i]])
			YTest = append(YTest, Y[indices[i]])
		} else {
			XTrain = append(XTrain, X[indices[i]])
			YTrain = append(YTrain, Y[indices[i]])
		}
	}
	return
}

// SplitFrame separates a frame into a feature matrix and target column
func SplitFrame(f *Frame, target string) (X [][]float64, Y []float64, featureColumns []string, err error) {
	Y, err = f.Column(target)
	if err != nil {
		return nil, nil, nil, err
	}
	features := f.Drop(target)
	return features.Data, Y, features.Columns, nil
}
