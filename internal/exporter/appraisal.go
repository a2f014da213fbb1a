package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// AppraisalReport is the inherited-portfolio valuation report offered
// for download from the predictions API.
type AppraisalReport struct {
	Columns     []string   // input attribute columns
	Houses      [][]string // raw attribute values per house
	Values      []float64  // appraised value per house
	Total       float64    // aggregate portfolio value
	GeneratedAt time.Time
}

const appraisalSheet = "Appraisal"

// WriteExcel renders the report as an Excel workbook
func (r *AppraisalReport) WriteExcel(w io.Writer) error {
	if len(r.Houses) != len(r.Values) {
		return fmt.Errorf("appraisal report has %d houses but %d values", len(r.Houses), len(r.Values))
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(appraisalSheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	// Header row: property id, attributes, appraised value
	headers := append([]string{"Property"}, r.Columns...)
	headers = append(headers, "Appraised Value ($)")
	for col, name := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		if err := f.SetCellValue(appraisalSheet, cell, name); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, house := range r.Houses {
		row := i + 2
		values := append([]interface{}{fmt.Sprintf("House %d", i+1)}, toInterfaces(house)...)
		values = append(values, r.Values[i])
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return fmt.Errorf("failed to compute cell name: %w", err)
			}
			if err := f.SetCellValue(appraisalSheet, cell, v); err != nil {
				return fmt.Errorf("failed to write row %d: %w", row, err)
			}
		}
	}

	// Aggregate row
	totalRow := len(r.Houses) + 2
	labelCell, err := excelize.CoordinatesToCellName(1, totalRow)
	if err != nil {
		return fmt.Errorf("failed to compute cell name: %w", err)
	}
	if err := f.SetCellValue(appraisalSheet, labelCell, "Portfolio total"); err != nil {
		return fmt.Errorf("failed to write total label: %w", err)
	}
	totalCell, err := excelize.CoordinatesToCellName(len(headers), totalRow)
	if err != nil {
		return fmt.Errorf("failed to compute cell name: %w", err)
	}
	if err := f.SetCellValue(appraisalSheet, totalCell, r.Total); err != nil {
		return fmt.Errorf("failed to write total: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteCSV renders the report as CSV with a trailing aggregate row
func (r *AppraisalReport) WriteCSV(w io.Writer) error {
	if len(r.Houses) != len(r.Values) {
		return fmt.Errorf("appraisal report has %d houses but %d values", len(r.Houses), len(r.Values))
	}

	writer := csv.NewWriter(w)

	headers := append([]string{"Property"}, r.Columns...)
	headers = append(headers, "AppraisedValue")
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	for i, house := range r.Houses {
		record := append([]string{fmt.Sprintf("House %d", i+1)}, house...)
		record = append(record, formatMoney(r.Values[i]))
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	total := make([]string, len(headers))
	total[0] = "Portfolio total"
	total[len(total)-1] = formatMoney(r.Total)
	if err := writer.Write(total); err != nil {
		return fmt.Errorf("failed to write total row: %w", err)
	}

	writer.Flush()
	return writer.Error()
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
