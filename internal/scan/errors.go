package scan

import (
	"errors"
	"fmt"
)

// Common scan errors
var (
	// ErrNoImage is returned when an upload carries no image data.
	ErrNoImage = errors.New("please upload an image first")

	// ErrNoText is returned when OCR finds no text in the image.
	ErrNoText = errors.New("OCR could not read any text from the image")

	// ErrNoIdentifier is returned by CreateContact for records without an identifier.
	ErrNoIdentifier = errors.New("record has no identifier to create a contact from")

	// ErrNoContactStore is returned by CreateContact when the service has no
	// contact repository.
	ErrNoContactStore = errors.New("contact storage is not configured")

	// ErrNoRecordStore is returned by CreateContact when the service has no
	// record store.
	ErrNoRecordStore = errors.New("scan history storage is not configured")
)

// ScanError wraps errors with the operation and file that failed.
type ScanError struct {
	// Op is the operation that failed (e.g., "Scan", "CreateContact").
	Op string

	// Err is the underlying error.
	Err error

	// Details identifies the file or record involved.
	Details string
}

// Error implements the error interface.
func (e *ScanError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("scan: %s failed for %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("scan: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ScanError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ScanError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapScanError wraps an error as a ScanError if it isn't already one.
func WrapScanError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return err
	}

	return &ScanError{Op: op, Err: err, Details: details}
}
