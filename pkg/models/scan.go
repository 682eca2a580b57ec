package models

import "time"

// ScanState is the lifecycle state of a scan record.
type ScanState string

const (
	ScanStateDraft     ScanState = "draft"     // Created, OCR not finished
	ScanStateProcessed ScanState = "processed" // Identifier extracted and validated, or contact created
	ScanStateError     ScanState = "error"     // OCR or extraction failed
)

// ScanRecord is one uploaded document and what was read from it.
type ScanRecord struct {
	// Core identifiers
	ID       string // Unique record identifier (UUID)
	Filename string // Original file name of the upload
	Uploader string // Who uploaded the document
	Engine   string // OCR engine that produced RawText

	// Content
	Image   []byte // Encoded image as uploaded
	RawText string // Full recognized text

	// Extraction outcome
	State            ScanState
	IdentifiedNumber string   // 13-digit national identifier, empty when absent
	IdentifiedDate   string   // YYYY-MM-DD, empty when absent
	IdentifiedAmount *float64 // nil when absent
	ErrorMessage     string   // Reason for the error state
	Confidence       *float32 // Mean OCR confidence, nil when the engine reports none

	ScannedAt time.Time // Upload timestamp
	UpdatedAt time.Time // Last update timestamp
}

// Contact is a person identified by a national identifier.
type Contact struct {
	ID        string // Unique contact identifier (UUID)
	Reference string // National identifier the contact was created from
	Name      string // Display name
	Comment   string // Note about the latest scan
	CreatedAt time.Time
	UpdatedAt time.Time
}
