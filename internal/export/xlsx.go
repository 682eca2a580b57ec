package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"ocrscan/internal/logger"
	"ocrscan/pkg/models"
)

// DefaultSheetName is used when WriteXLSX gets an empty sheet name.
const DefaultSheetName = "Scans"

// WriteXLSX writes records as a single-sheet workbook to w.
func WriteXLSX(w io.Writer, records []*models.ScanRecord, sheetName string) error {
	log := logger.WithComponent("export")
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	// A new workbook starts with one sheet; rename it instead of adding another.
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("xlsx sheet %q: %w", sheetName, err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	for i, row := range Rows(records) {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E6E6E6"}},
	})
	if err != nil {
		return fmt.Errorf("xlsx header style: %w", err)
	}
	_ = f.SetRowStyle(sheetName, 1, 1, bold)
	_ = f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	// Widen a few columns
	_ = f.SetColWidth(sheetName, "A", "A", 38) // record id
	_ = f.SetColWidth(sheetName, "B", "C", 24) // file, uploader
	_ = f.SetColWidth(sheetName, "F", "F", 16) // identifier
	_ = f.SetColWidth(sheetName, "G", "I", 12) // date, amount, confidence
	_ = f.SetColWidth(sheetName, "J", "J", 36) // error
	_ = f.SetColWidth(sheetName, "K", "K", 20) // scanned at

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}

	log.Info().
		Str("sheet", sheetName).
		Int("rows", len(records)).
		Msg("XLSX export written")
	return nil
}
