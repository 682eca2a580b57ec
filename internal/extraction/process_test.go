package extraction

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
)

const validID = "1234567890121"

func TestProcessEmptyInput(t *testing.T) {
	p := NewProcessor()
	got := p.Process("")

	if got.Succeeded || got.State != StateError {
		t.Fatalf("Process(\"\") = %+v, want error state", got)
	}
	if got.IdentifiedNumber != "" || got.HasDate() || got.HasAmount() {
		t.Errorf("Process(\"\") populated optional fields: %+v", got)
	}
	if got.ErrorMessage == "" {
		t.Error("Process(\"\") has empty error message")
	}
	if !errors.Is(got.Err, ErrInputMissing) {
		t.Errorf("Err = %v, want ErrInputMissing", got.Err)
	}
}

func TestProcessFullDocument(t *testing.T) {
	p := NewProcessor()
	text := "Total 1,234.56 THB\nID " + validID + "\nDate 15-01-2565\n"

	got := p.Process(text)

	if !got.Succeeded || got.State != StateProcessed {
		t.Fatalf("Process = %+v, want processed", got)
	}
	if got.IdentifiedNumber != validID {
		t.Errorf("IdentifiedNumber = %q, want %q", got.IdentifiedNumber, validID)
	}
	if got.IdentifiedDate != "2565-01-15" {
		t.Errorf("IdentifiedDate = %q, want 2565-01-15", got.IdentifiedDate)
	}
	if got.IdentifiedAmount == nil || *got.IdentifiedAmount != 1234.56 {
		t.Errorf("IdentifiedAmount = %v, want 1234.56", got.IdentifiedAmount)
	}
	if got.ErrorMessage != "" || got.Err != nil {
		t.Errorf("unexpected error on success: %q, %v", got.ErrorMessage, got.Err)
	}
}

func TestProcessInvalidIdentifierKeepsSupplementaryFields(t *testing.T) {
	p := NewProcessor()
	const bad = "1234567890123"
	got := p.Process("amount 500.25 id " + bad + " on 10/05/2565")

	if got.Succeeded || got.State != StateError {
		t.Fatalf("Process = %+v, want error", got)
	}
	if got.IdentifiedNumber != "" {
		t.Errorf("IdentifiedNumber = %q, want empty for invalid id", got.IdentifiedNumber)
	}
	if !strings.Contains(got.ErrorMessage, bad) {
		t.Errorf("ErrorMessage %q does not mention %s", got.ErrorMessage, bad)
	}
	if !errors.Is(got.Err, ErrIdentifierInvalid) {
		t.Errorf("Err = %v, want ErrIdentifierInvalid", got.Err)
	}
	if got.IdentifiedDate != "2565-05-10" {
		t.Errorf("IdentifiedDate = %q, want 2565-05-10", got.IdentifiedDate)
	}
	if got.IdentifiedAmount == nil || *got.IdentifiedAmount != 500.25 {
		t.Errorf("IdentifiedAmount = %v, want 500.25", got.IdentifiedAmount)
	}
}

func TestProcessNoIdentifier(t *testing.T) {
	p := NewProcessor()
	got := p.Process("receipt 2565-05-10 total 99.00")

	if got.Succeeded || got.State != StateError {
		t.Fatalf("Process = %+v, want error", got)
	}
	if got.ErrorMessage != "no identifier found" {
		t.Errorf("ErrorMessage = %q", got.ErrorMessage)
	}
	if !errors.Is(got.Err, ErrIdentifierNotFound) {
		t.Errorf("Err = %v, want ErrIdentifierNotFound", got.Err)
	}
	if got.IdentifiedDate != "2565-05-10" {
		t.Errorf("IdentifiedDate = %q", got.IdentifiedDate)
	}
	if !got.HasAmount() {
		t.Error("amount not attached on failure")
	}
}

func TestProcessSuccessInvariant(t *testing.T) {
	p := NewProcessor()
	inputs := []string{
		"",
		"nothing",
		validID,
		"1234567890123",
		"x 1101700203450 y 01/01/2020",
		"๑๒๓๔๕๖๗๘๙๐๑๒๑",
	}
	for _, in := range inputs {
		r := p.Process(in)
		processed := r.State == StateProcessed
		valid := r.IdentifiedNumber != "" && ValidateThaiID(r.IdentifiedNumber)
		if r.Succeeded != processed || processed != valid {
			t.Errorf("Process(%q) breaks success invariant: %+v", in, r)
		}
		if r.Succeeded != (r.ErrorMessage == "") {
			t.Errorf("Process(%q) error message mismatch: %+v", in, r)
		}
	}
}

func TestProcessIdempotent(t *testing.T) {
	p := NewProcessor()
	text := "1,000.00 " + validID + " 2565/12/31"

	first := p.Process(text)
	second := p.Process(text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Process not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestProcessConcurrent(t *testing.T) {
	p := NewProcessor()
	inputs := []string{
		"",
		"id " + validID,
		"id 1234567890123",
		"total 1,234.56 on 15-01-2565",
	}
	want := make([]Result, len(inputs))
	for i, in := range inputs {
		want[i] = p.Process(in)
	}

	var wg sync.WaitGroup
	for n := 0; n < 16; n++ {
		for i, in := range inputs {
			wg.Add(1)
			go func(i int, in string) {
				defer wg.Done()
				if got := p.Process(in); !reflect.DeepEqual(got, want[i]) {
					t.Errorf("concurrent Process(%q) = %+v, want %+v", in, got, want[i])
				}
			}(i, in)
		}
	}
	wg.Wait()
}
