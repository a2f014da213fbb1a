package dataset

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Frame is a column-ordered numeric table. Missing values are NaN
// until imputation.
type Frame struct {
	Columns []string
	Data    [][]float64
}

// NewFrame allocates a frame with the given columns and row count,
// initialized to NaN.
func NewFrame(columns []string, rows int) *Frame {
	data := make([][]float64, rows)
	for i := range data {
		row := make([]float64, len(columns))
		for j := range row {
			row[j] = math.NaN()
		}
		data[i] = row
	}
	return &Frame{Columns: append([]string(nil), columns...), Data: data}
}

// ParseValue converts a CSV cell to float64, NaN for empty or
// non-numeric cells.
func ParseValue(s string) float64 {
	if s == "" || s == "NA" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// NumRows returns the number of rows
func (f *Frame) NumRows() int {
	return len(f.Data)
}

// NumCols returns the number of columns
func (f *Frame) NumCols() int {
	return len(f.Columns)
}

// ColumnIndex returns the position of a column, or -1 when absent
func (f *Frame) ColumnIndex(name string) int {
	for i, col := range f.Columns {
		if col == name {
			return i
		}
	}
	return -1
}

// Column returns a copy of the named column
func (f *Frame) Column(name string) ([]float64, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %s not found", name)
	}
	out := make([]float64, len(f.Data))
	for i, row := range f.Data {
		out[i] = row[idx]
	}
	return out, nil
}

// Drop returns a new frame without the named column. Dropping an
// absent column returns an unchanged copy.
func (f *Frame) Drop(name string) *Frame {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return f.clone()
	}

	columns := make([]string, 0, len(f.Columns)-1)
	columns = append(columns, f.Columns[:idx]...)
	columns = append(columns, f.Columns[idx+1:]...)

	data := make([][]float64, len(f.Data))
	for i, row := range f.Data {
		newRow := make([]float64, 0, len(row)-1)
		newRow = append(newRow, row[:idx]...)
		newRow = append(newRow, row[idx+1:]...)
		data[i] = newRow
	}
	return &Frame{Columns: columns, Data: data}
}

// Reindex returns a new frame with exactly the given columns in the
// given order. Columns absent from the source are filled with fill.
func (f *Frame) Reindex(columns []string, fill float64) *Frame {
	indices := make([]int, len(columns))
	for j, name := range columns {
		indices[j] = f.ColumnIndex(name)
	}

	data := make([][]float64, len(f.Data))
	for i, row := range f.Data {
		newRow := make([]float64, len(columns))
		for j, srcIdx := range indices {
			if srcIdx >= 0 {
				newRow[j] = row[srcIdx]
			} else {
				newRow[j] = fill
			}
		}
		data[i] = newRow
	}
	return &Frame{Columns: append([]string(nil), columns...), Data: data}
}

// Medians returns the per-column median, skipping NaN cells. Columns
// with no observed values are omitted.
func (f *Frame) Medians() map[string]float64 {
	medians := make(map[string]float64, len(f.Columns))
	for j, name := range f.Columns {
		values := make([]float64, 0, len(f.Data))
		for _, row := range f.Data {
			if !math.IsNaN(row[j]) {
				values = append(values, row[j])
			}
		}
		if len(values) == 0 {
			continue
		}
		medians[name] = Median(values)
	}
	return medians
}

// FillNaN replaces NaN cells using per-column defaults, falling back
// to the given value for columns without a default.
func (f *Frame) FillNaN(defaults map[string]float64, fallback float64) {
	for j, name := range f.Columns {
		def, ok := defaults[name]
		if !ok {
			def = fallback
		}
		for _, row := range f.Data {
			if math.IsNaN(row[j]) {
				row[j] = def
			}
		}
	}
}

// DropRowsWithNaN returns a new frame keeping only rows where the
// named column is a real number. Used to discard records without a
// usable target value.
func (f *Frame) DropRowsWithNaN(column string) *Frame {
	idx := f.ColumnIndex(column)
	if idx < 0 {
		return f.clone()
	}
	data := make([][]float64, 0, len(f.Data))
	for _, row := range f.Data {
		if !math.IsNaN(row[idx]) {
			data = append(data, append([]float64(nil), row...))
		}
	}
	return &Frame{Columns: append([]string(nil), f.Columns...), Data: data}
}

func (f *Frame) clone() *Frame {
	data := make([][]float64, len(f.Data))
	for i, row := range f.Data {
		data[i] = append([]float64(nil), row...)
	}
	return &Frame{Columns: append([]string(nil), f.Columns...), Data: data}
}

// Median returns the median of a slice. The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// Mean computes the average of a slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Std computes the population standard deviation of a slice
func Std(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / n)
}

// MinMax returns the smallest and largest values of a slice
func MinMax(values []float64) (min, max float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max = values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
