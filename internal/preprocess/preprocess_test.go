package preprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"houselytics/internal/dataset"
)

func TestEncodeCell_Ordinals(t *testing.T) {
	tests := []struct {
		column string
		cell   string
		want   float64
	}{
		{"BsmtExposure", "No", 0},
		{"BsmtExposure", "Gd", 3},
		{"BsmtExposure", "Unknown", 0},
		{"BsmtFinType1", "GLQ", 5},
		{"BsmtFinType1", "Unf", 0},
		{"GarageFinish", "Fin", 2},
		{"GarageFinish", "RFn", 1},
		{"KitchenQual", "Ex", 5},
		{"KitchenQual", "Po", 1},
		// unknown kitchen quality falls back to typical/average
		{"KitchenQual", "Weird", 3},
		// pre-encoded numeric cells pass through
		{"KitchenQual", "4", 4},
	}

	for _, tt := range tests {
		t.Run(tt.column+"_"+tt.cell, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeCell(tt.column, tt.cell))
		})
	}
}

func TestEncodeCell_MissingOrdinalIsNaN(t *testing.T) {
	assert.True(t, math.IsNaN(EncodeCell("GarageFinish", "")))
}

func TestEncodeCell_Numeric(t *testing.T) {
	assert.Equal(t, 1500.0, EncodeCell("GrLivArea", "1500"))
	assert.True(t, math.IsNaN(EncodeCell("GrLivArea", "")))
	assert.True(t, math.IsNaN(EncodeCell("GrLivArea", "NA")))
}

func TestEncodeTable(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{"GrLivArea", "KitchenQual"},
		Records: [][]string{
			{"1500", "Gd"},
			{"900", ""},
		},
	}

	frame := EncodeTable(table)
	assert.Equal(t, 4.0, frame.Data[0][1])
	assert.Equal(t, 1500.0, frame.Data[0][0])
	assert.True(t, math.IsNaN(frame.Data[1][1]))
}

func TestBuildFeatureRow(t *testing.T) {
	columns := []string{"OverallQual", "GrLivArea", "GarageArea"}
	medians := map[string]float64{"OverallQual": 5, "GrLivArea": 1400}

	row := BuildFeatureRow(
		map[string]float64{"GrLivArea": 2000},
		columns,
		medians,
	)

	require.Len(t, row, 3)
	// untouched columns fall back to the training median
	assert.Equal(t, 5.0, row[0])
	// user value wins over the median
	assert.Equal(t, 2000.0, row[1])
	// no median known -> 0
	assert.Equal(t, 0.0, row[2])
}

func TestBuildFeatureRow_IgnoresUnknownAndNaN(t *testing.T) {
	columns := []string{"OverallQual"}
	row := BuildFeatureRow(
		map[string]float64{"NotAColumn": 7, "OverallQual": math.NaN()},
		columns,
		map[string]float64{"OverallQual": 5},
	)

	assert.Equal(t, []float64{5}, row)
}

func TestPrepareBatch(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{"GarageFinish", "GrLivArea", "Extra"},
		Records: [][]string{
			{"Fin", "1200", "9"},
			{"", "", "9"},
		},
	}
	featureColumns := []string{"GrLivArea", "GarageFinish", "OverallQual"}
	medians := map[string]float64{"GrLivArea": 1450, "GarageFinish": 1, "OverallQual": 5}

	frame := PrepareBatch(table, featureColumns, medians)

	assert.Equal(t, featureColumns, frame.Columns)
	require.Equal(t, 2, frame.NumRows())

	// encoded and ordered
	assert.Equal(t, []float64{1200, 2, 0}, frame.Data[0])
	// missing cells imputed from training medians; unseen feature filled with 0
	assert.Equal(t, []float64{1450, 1, 0}, frame.Data[1])

	// no NaN anywhere
	for _, row := range frame.Data {
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
		}
	}
}

func TestCleanTrainingTable(t *testing.T) {
	table := &dataset.Table{
		Columns: []string{"GrLivArea", "KitchenQual", "SalePrice"},
		Records: [][]string{
			{"1500", "Gd", "200000"},
			{"900", "TA", ""},
			{"", "Ex", "150000"},
		},
	}

	frame := CleanTrainingTable(table, "SalePrice")

	// row without a target is dropped
	assert.Equal(t, 2, frame.NumRows())

	// missing living area imputed from the surviving rows' median
	area, err := frame.Column("GrLivArea")
	require.NoError(t, err)
	assert.Equal(t, []float64{1500, 1500}, area)

	for _, row := range frame.Data {
		for _, v := range row {
			assert.False(t, math.IsNaN(v))
		}
	}
}
