// Package export renders scan history as spreadsheet rows and XLSX workbooks.
package export

import (
	"ocrscan/pkg/models"
)

// Header is the column header row shared by every export target.
var Header = []string{
	"Record ID",
	"File",
	"Uploader",
	"Engine",
	"State",
	"Identifier",
	"Date",
	"Amount",
	"Confidence",
	"Error",
	"Scanned At",
}

// ScannedAtLayout formats the scan timestamp column.
const ScannedAtLayout = "2006-01-02 15:04:05"

// Rows converts records to value rows in Header order. Absent amount and
// confidence become empty strings so spreadsheet cells stay blank.
func Rows(records []*models.ScanRecord) [][]any {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		var amount, confidence any = "", ""
		if r.IdentifiedAmount != nil {
			amount = *r.IdentifiedAmount
		}
		if r.Confidence != nil {
			confidence = float64(*r.Confidence)
		}
		rows = append(rows, []any{
			r.ID,
			r.Filename,
			r.Uploader,
			r.Engine,
			string(r.State),
			r.IdentifiedNumber,
			r.IdentifiedDate,
			amount,
			confidence,
			r.ErrorMessage,
			r.ScannedAt.Local().Format(ScannedAtLayout),
		})
	}
	return rows
}
