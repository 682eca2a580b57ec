package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrEmptyImage is returned when no image bytes were supplied.
	ErrEmptyImage = errors.New("image is empty")

	// ErrImageTooLarge is returned when the image exceeds MaxImageSizeBytes.
	ErrImageTooLarge = errors.New("image exceeds the maximum size (20MB)")

	// ErrUnsupportedFormat is returned when the image format cannot be
	// recognized or is not supported by the selected engine.
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrTooManyPages is returned when a PDF has more pages than synchronous
	// processing supports.
	ErrTooManyPages = errors.New("document has too many pages (maximum 5 pages for synchronous processing)")

	// ErrOCRFailed is returned when the engine fails to process the image.
	ErrOCRFailed = errors.New("OCR processing failed")

	// ErrMissingCredentials is returned when a cloud engine has no usable
	// credentials.
	ErrMissingCredentials = errors.New("missing OCR engine credentials")

	// ErrInvalidConfiguration is returned when required engine settings are missing.
	ErrInvalidConfiguration = errors.New("invalid OCR engine configuration")

	// ErrUnknownEngine is returned by New for an unrecognized engine name.
	ErrUnknownEngine = errors.New("unknown OCR engine")
)

// OCRError wraps errors with additional context about the OCR processing failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "VisionRecognize", "New").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return NewOCRError(op, err, details)
}
