// Package preprocess converts raw Ames housing records into the
// numeric feature space the price model was trained on. Ordinal
// category labels are mapped to ranks, missing values are imputed from
// training medians, and rows are reindexed to the exact training
// column order.
package preprocess

import (
	"math"

	"houselytics/internal/dataset"
)

// OrdinalMap maps category labels of one column to numeric ranks with
// a default for unknown or missing labels.
type OrdinalMap struct {
	Values  map[string]float64
	Default float64
}

// Ordinal encodings for the dataset's quality/finish columns. The
// ranks must match the encoding the model was trained with.
var OrdinalMaps = map[string]OrdinalMap{
	"BsmtExposure": {
		Values:  map[string]float64{"No": 0, "Mn": 1, "Av": 2, "Gd": 3},
		Default: 0,
	},
	"BsmtFinType1": {
		Values:  map[string]float64{"Unf": 0, "LwQ": 1, "Rec": 2, "BLQ": 3, "ALQ": 4, "GLQ": 5},
		Default: 0,
	},
	"GarageFinish": {
		Values:  map[string]float64{"Unf": 0, "RFn": 1, "Fin": 2},
		Default: 0,
	},
	"KitchenQual": {
		Values:  map[string]float64{"Po": 1, "Fa": 2, "TA": 3, "Gd": 4, "Ex": 5},
		Default: 3,
	},
}

// EncodeCell converts one raw CSV cell to a number. Ordinal columns
// use their rank map; other cells parse as float with NaN for missing
// or unparseable values.
func EncodeCell(column, cell string) float64 {
	if om, ok := OrdinalMaps[column]; ok {
		if v := dataset.ParseValue(cell); !math.IsNaN(v) {
			// Already numeric, e.g. a pre-encoded dataset
			return v
		}
		if cell == "" {
			return math.NaN()
		}
		if rank, ok := om.Values[cell]; ok {
			return rank
		}
		return om.Default
	}
	return dataset.ParseValue(cell)
}

// EncodeTable converts a raw table to a numeric frame, applying the
// ordinal maps. Missing values stay NaN for later imputation.
func EncodeTable(t *dataset.Table) *dataset.Frame {
	frame := dataset.NewFrame(t.Columns, t.NumRows())
	for i, row := range t.Records {
		for j, col := range t.Columns {
			frame.Data[i][j] = EncodeCell(col, row[j])
		}
	}
	return frame
}

// BuildFeatureRow builds a single model-ready row with exactly the
// training feature columns. The row starts out at the training median
// for every column (0 when no median is known) and only the attributes
// the caller supplied are overwritten. The result never contains NaN.
func BuildFeatureRow(userValues map[string]float64, featureColumns []string, trainMedians map[string]float64) []float64 {
	row := make([]float64, len(featureColumns))
	for j, col := range featureColumns {
		if median, ok := trainMedians[col]; ok {
			row[j] = median
		}
		if v, ok := userValues[col]; ok && !math.IsNaN(v) {
			row[j] = v
		}
	}
	return row
}

// PrepareBatch prepares a raw property table (e.g. the inherited
// houses file) to match the training features: encode ordinal columns,
// fill missing numerics with training medians, and reindex to the
// exact training columns and order with 0 fill.
func PrepareBatch(t *dataset.Table, featureColumns []string, trainMedians map[string]float64) *dataset.Frame {
	frame := EncodeTable(t)
	frame.FillNaN(trainMedians, 0)
	return frame.Reindex(featureColumns, 0)
}

// CleanTrainingTable prepares the raw training table for model
// fitting: ordinal encoding, rows without a target value dropped, and
// remaining gaps imputed with the table's own medians.
func CleanTrainingTable(t *dataset.Table, target string) *dataset.Frame {
	frame := EncodeTable(t)
	frame = frame.DropRowsWithNaN(target)
	frame.FillNaN(frame.Medians(), 0)
	return frame
}
