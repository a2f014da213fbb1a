package analysis

import (
	"fmt"

	"houselytics/internal/dataset"
)

// Hypothesis is one of the project's pricing hypotheses, validated
// against the dataset by correlation strength.
type Hypothesis struct {
	ID        string  `json:"id"`
	Statement string  `json:"statement"`
	Feature   string  `json:"feature"`
	Label     string  `json:"label"`
	Threshold float64 `json:"threshold"`
	R         float64 `json:"r"`
	Supported bool    `json:"supported"`
	Verdict   string  `json:"verdict"`
}

// projectHypotheses are the three claims the study set out to test
var projectHypotheses = []Hypothesis{
	{
		ID:        "size",
		Statement: "Larger living area commands a higher sale price",
		Feature:   "GrLivArea",
		Threshold: 0.5,
	},
	{
		ID:        "quality",
		Statement: "Higher construction quality commands a higher sale price",
		Feature:   "OverallQual",
		Threshold: 0.5,
	},
	{
		ID:        "age",
		Statement: "Recently built houses command a higher sale price",
		Feature:   "YearBuilt",
		Threshold: 0.3,
	},
}

// ValidateHypotheses evaluates each project hypothesis against the
// cleaned dataset. A hypothesis is supported when the feature's
// correlation with the target is positive and at least as strong as
// its threshold.
func ValidateHypotheses(f *dataset.Frame, target string) ([]Hypothesis, error) {
	targetCol, err := f.Column(target)
	if err != nil {
		return nil, fmt.Errorf("target column: %w", err)
	}

	out := make([]Hypothesis, 0, len(projectHypotheses))
	for _, h := range projectHypotheses {
		col, err := f.Column(h.Feature)
		if err != nil {
			return nil, fmt.Errorf("hypothesis %s: %w", h.ID, err)
		}

		h.Label = PrettyLabel(h.Feature)
		h.R = Pearson(col, targetCol)
		h.Supported = h.R >= h.Threshold

		if h.Supported {
			h.Verdict = fmt.Sprintf("Supported: correlation %.2f meets the %.2f threshold", h.R, h.Threshold)
		} else {
			h.Verdict = fmt.Sprintf("Not supported: correlation %.2f is below the %.2f threshold", h.R, h.Threshold)
		}
		out = append(out, h)
	}
	return out, nil
}
