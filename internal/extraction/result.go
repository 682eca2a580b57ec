// Package extraction turns raw OCR text into structured document fields.
//
// The package is the pure core of the scanner: it never touches images,
// engines, or storage. Given one blob of recognized text it locates
//   - a 13-digit Thai national identification number,
//   - a calendar date (day/month/year or year/month/day),
//   - a formatted monetary amount,
//
// validates the identifier with the national ID checksum and assembles a
// Result. Date and amount are best-effort and never decide success.
//
// Every function in this package is deterministic and safe for concurrent
// use. Diagnostics go through the component logger only.
package extraction

import (
	"errors"
	"fmt"
)

// State is the outcome of processing one text blob.
type State string

const (
	// StateProcessed means a checksum-valid identifier was found.
	StateProcessed State = "processed"

	// StateError means no usable identifier was found.
	StateError State = "error"
)

// IdentifierLength is the number of digits in a Thai national ID.
const IdentifierLength = 13

// DateLayout is the normalized output format for extracted dates.
const DateLayout = "2006-01-02"

// Processing outcomes reported through Result.Err.
var (
	// ErrInputMissing is reported when there is no text to extract from.
	ErrInputMissing = errors.New("no text provided")

	// ErrIdentifierNotFound is reported when the text holds no 13-digit run.
	ErrIdentifierNotFound = errors.New("no identifier found")

	// ErrIdentifierInvalid is reported when the 13-digit run fails the checksum.
	// The offending value is included in the wrapped message.
	ErrIdentifierInvalid = errors.New("invalid identifier")
)

// Result is the structured output of Process. It is built once and not
// modified afterwards.
type Result struct {
	// Succeeded is true iff State is StateProcessed.
	Succeeded bool `json:"succeeded"`

	// State is StateProcessed or StateError.
	State State `json:"state"`

	// IdentifiedNumber holds the validated 13-digit identifier, empty when absent.
	IdentifiedNumber string `json:"identified_number,omitempty"`

	// IdentifiedDate is the first valid date in YYYY-MM-DD form, empty when absent.
	IdentifiedDate string `json:"identified_date,omitempty"`

	// IdentifiedAmount is the first parsable amount, nil when absent.
	IdentifiedAmount *float64 `json:"identified_amount,omitempty"`

	// ErrorMessage describes the failure. Empty on success.
	ErrorMessage string `json:"error_message,omitempty"`

	// Err carries the sentinel behind ErrorMessage for errors.Is checks.
	Err error `json:"-"`
}

// HasDate reports whether a date was extracted.
func (r Result) HasDate() bool { return r.IdentifiedDate != "" }

// HasAmount reports whether an amount was extracted.
func (r Result) HasAmount() bool { return r.IdentifiedAmount != nil }

func invalidIdentifierError(id string) error {
	return fmt.Errorf("%w: %s", ErrIdentifierInvalid, id)
}
