// Package report renders the analysis history as a spreadsheet.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Skufu/vitreos/internal/profile"
)

const SheetName = "History"

// Header is the export column order.
var Header = []string{
	"Submitted",
	"Blood Group",
	"Blood Pressure (Systolic)",
	"WBC",
	"Platelets",
	"Hemoglobin",
	"Hematocrit",
	"RBC",
	"MCV",
	"Allergies",
	"Medications",
	"Dosage",
	"Environmental Factors",
	"Entry ID",
}

var columns = []profile.Field{
	profile.BloodGroup, profile.BloodPressure, profile.WBC, profile.Platelets,
	profile.Hemoglobin, profile.Hematocrit, profile.RBC, profile.MCV,
	profile.Allergies, profile.Medications, profile.Dosage, profile.Environment,
}

var columnWidths = []float64{20, 12, 14, 10, 10, 12, 12, 10, 10, 30, 30, 20, 24, 38}

// HistoryWorkbook writes entries newest first, one row each. Missing values
// are written as "Not provided".
func HistoryWorkbook(entries []profile.HistoryEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	last, err := excelize.ColumnNumberToName(len(Header))
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", last+"1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, e := range entries {
		row := make([]any, 0, len(Header))
		row = append(row, e.Timestamp.UTC().Format(time.DateTime))
		for _, field := range columns {
			row = append(row, e.Profile.Or(field, "Not provided"))
		}
		row = append(row, e.ID)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
