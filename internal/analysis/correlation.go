// Package analysis produces the data-insights numbers behind the
// dashboard: how strongly each property attribute moves with sale
// price, per-feature descriptive statistics, and validation of the
// project's pricing hypotheses.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"houselytics/internal/dataset"
)

// Correlation is the signed Pearson correlation of one feature
// against the target.
type Correlation struct {
	Feature string  `json:"feature"`
	Label   string  `json:"label"`
	R       float64 `json:"r"`
}

// Pearson computes the Pearson correlation coefficient between two
// equally sized series. Returns 0 when either series has no variance.
func Pearson(x, y []float64) float64 {
	n := float64(len(x))
	if n == 0 || len(x) != len(y) {
		return 0
	}

	meanX, meanY := dataset.Mean(x), dataset.Mean(y)
	var cov, varX, varY float64
	for i := range x {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0
	}
	return cov / math.Sqrt(varX*varY)
}

// TopCorrelations ranks features by |r| against the target and
// returns the strongest n with their signed values. The target itself
// is excluded.
func TopCorrelations(f *dataset.Frame, target string, n int) ([]Correlation, error) {
	targetCol, err := f.Column(target)
	if err != nil {
		return nil, fmt.Errorf("target column: %w", err)
	}

	correlations := make([]Correlation, 0, len(f.Columns)-1)
	for _, name := range f.Columns {
		if name == target {
			continue
		}
		col, err := f.Column(name)
		if err != nil {
			return nil, err
		}
		correlations = append(correlations, Correlation{
			Feature: name,
			Label:   PrettyLabel(name),
			R:       Pearson(col, targetCol),
		})
	}

	sort.SliceStable(correlations, func(i, j int) bool {
		return math.Abs(correlations[i].R) > math.Abs(correlations[j].R)
	})

	if n > 0 && n < len(correlations) {
		correlations = correlations[:n]
	}
	return correlations, nil
}

// FeatureStats holds descriptive statistics for one feature
type FeatureStats struct {
	Feature string  `json:"feature"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	R       float64 `json:"correlation_with_target"`
}

// ScatterPoint pairs one feature value with the target value
type ScatterPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DescribeFeature returns descriptive statistics and a scatter sample
// (feature vs target) for charting. sampleLimit caps the number of
// returned points; 0 means all.
func DescribeFeature(f *dataset.Frame, feature, target string, sampleLimit int) (FeatureStats, []ScatterPoint, error) {
	col, err := f.Column(feature)
	if err != nil {
		return FeatureStats{}, nil, err
	}
	targetCol, err := f.Column(target)
	if err != nil {
		return FeatureStats{}, nil, err
	}

	min, max := dataset.MinMax(col)
	stats := FeatureStats{
		Feature: feature,
		Label:   PrettyLabel(feature),
		Count:   len(col),
		Mean:    dataset.Mean(col),
		Median:  dataset.Median(col),
		Std:     dataset.Std(col),
		Min:     min,
		Max:     max,
		R:       Pearson(col, targetCol),
	}

	points := make([]ScatterPoint, len(col))
	for i := range col {
		points[i] = ScatterPoint{X: col[i], Y: targetCol[i]}
	}
	if sampleLimit > 0 && len(points) > sampleLimit {
		// Even stride keeps the sample deterministic
		stride := len(points) / sampleLimit
		sampled := make([]ScatterPoint, 0, sampleLimit)
		for i := 0; i < len(points) && len(sampled) < sampleLimit; i += stride {
			sampled = append(sampled, points[i])
		}
		points = sampled
	}

	return stats, points, nil
}

// Overview summarizes the dataset shape for the insights landing view
type Overview struct {
	Records  int    `json:"records"`
	Features int    `json:"features"`
	Target   string `json:"target"`
}

// DescribeFrame returns the dataset overview
func DescribeFrame(f *dataset.Frame, target string) Overview {
	return Overview{
		Records:  f.NumRows(),
		Features: f.NumCols(),
		Target:   target,
	}
}

// prettyLabels maps raw Ames column names to readable chart labels
var prettyLabels = map[string]string{
	"1stFlrSF":     "1st floor area (sq ft)",
	"2ndFlrSF":     "2nd floor area (sq ft)",
	"GrLivArea":    "Total living area (sq ft)",
	"GarageArea":   "Garage area (sq ft)",
	"LotArea":      "Lot size (sq ft)",
	"TotalBsmtSF":  "Basement area (sq ft)",
	"YearBuilt":    "Year built",
	"YearRemodAdd": "Remodel year",
	"OverallQual":  "Construction quality (1-10)",
	"OverallCond":  "Overall condition (1-9)",
	"BedroomAbvGr": "Bedrooms above ground",
	"FullBath":     "Full bathrooms",
	"HalfBath":     "Half bathrooms",
	"TotRmsAbvGrd": "Total rooms above ground",
	"KitchenQual":  "Kitchen quality (1-5)",
	"GarageFinish": "Garage finish (0-2)",
	"BsmtExposure": "Basement exposure (0-3)",
	"BsmtFinType1": "Basement finish type (0-5)",
	"SalePrice":    "Sale price ($)",
}

// PrettyLabel converts a dataset column name to a human-friendly
// label. Unknown columns pass through unchanged.
func PrettyLabel(feature string) string {
	if label, ok := prettyLabels[feature]; ok {
		return label
	}
	return feature
}
