// Package scan runs the document workflow: recognize an uploaded image,
// extract the identifier, date and amount from the text, and keep the
// outcome in scan history. It also turns a scanned identifier into a contact.
package scan

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ocrscan/internal/extraction"
	"ocrscan/internal/logger"
	"ocrscan/internal/ocr"
	"ocrscan/pkg/models"
)

// NoTextFound is stored as raw text when OCR reads nothing.
const NoTextFound = "no text found"

// RecordStore persists scan records. *history.Store implements it.
type RecordStore interface {
	Create(ctx context.Context, rec *models.ScanRecord) error
	Update(ctx context.Context, rec *models.ScanRecord) error
	Get(ctx context.Context, id string) (*models.ScanRecord, error)
}

// ContactStore creates or refreshes contacts. *contact.Repository implements it.
type ContactStore interface {
	UpsertByReference(ctx context.Context, reference string, scannedAt time.Time) (*models.Contact, string, error)
}

// Upload is one document submitted for scanning.
type Upload struct {
	Filename  string
	Uploader  string
	Image     []byte
	ScannedAt time.Time // zero means now
}

// Outcome is the result of scanning one upload.
type Outcome struct {
	Record   *models.ScanRecord
	Result   extraction.Result
	Segments []ocr.Segment
}

// Service scans uploads with one recognizer. Records and contacts are
// optional; without a RecordStore nothing is persisted.
type Service struct {
	recognizer ocr.Recognizer
	processor  *extraction.Processor
	records    RecordStore
	contacts   ContactStore
	log        zerolog.Logger
	now        func() time.Time
}

// NewService creates a scan service. records and contacts may be nil.
func NewService(recognizer ocr.Recognizer, records RecordStore, contacts ContactStore) *Service {
	return &Service{
		recognizer: recognizer,
		processor:  extraction.NewProcessor(),
		records:    records,
		contacts:   contacts,
		log:        logger.WithComponent("scan"),
		now:        time.Now,
	}
}

// Scan recognizes and extracts one upload.
//
// When OCR fails or reads no text, the record is kept in the error state and
// returned together with the error. A document whose text lacks a valid
// identifier is not a Go error; the Outcome's Result says what went wrong.
func (s *Service) Scan(ctx context.Context, up Upload) (*Outcome, error) {
	const op = "Scan"

	if len(up.Image) == 0 {
		return nil, WrapScanError(op, ErrNoImage, up.Filename)
	}
	if up.ScannedAt.IsZero() {
		up.ScannedAt = s.now()
	}

	log := logger.WithScan("scan", up.Filename)
	rec := &models.ScanRecord{
		Filename:  up.Filename,
		Uploader:  up.Uploader,
		Engine:    s.recognizer.Name(),
		Image:     up.Image,
		State:     models.ScanStateDraft,
		ScannedAt: up.ScannedAt,
	}
	if s.records != nil {
		if err := s.records.Create(ctx, rec); err != nil {
			return nil, WrapScanError(op, err, up.Filename)
		}
	}
	out := &Outcome{Record: rec}

	start := s.now()
	segments, err := s.recognizer.Recognize(ctx, up.Image)
	if err != nil {
		log.Error().Err(err).Str("engine", rec.Engine).Msg("OCR failed")
		rec.State = models.ScanStateError
		rec.ErrorMessage = err.Error()
		return out, WrapScanError(op, errors.Join(err, s.save(ctx, rec)), up.Filename)
	}
	out.Segments = segments

	text := ocr.Text(segments)
	if strings.TrimSpace(text) == "" {
		log.Warn().Msg("OCR returned no text")
		rec.RawText = NoTextFound
		rec.State = models.ScanStateError
		rec.ErrorMessage = ErrNoText.Error()
		return out, WrapScanError(op, errors.Join(ErrNoText, s.save(ctx, rec)), up.Filename)
	}

	rec.RawText = text
	if c, ok := ocr.MeanConfidence(segments); ok {
		rec.Confidence = &c
	}

	res := s.processor.Process(text)
	out.Result = res
	applyResult(rec, res)

	if err := s.save(ctx, rec); err != nil {
		return out, WrapScanError(op, err, up.Filename)
	}

	log.Info().
		Str("record_id", rec.ID).
		Str("state", string(rec.State)).
		Str("identifier", rec.IdentifiedNumber).
		Int("segments", len(segments)).
		Dur("duration", s.now().Sub(start)).
		Msg("Scan completed")

	return out, nil
}

// applyResult copies an extraction result into the record.
func applyResult(rec *models.ScanRecord, res extraction.Result) {
	rec.IdentifiedNumber = res.IdentifiedNumber
	rec.IdentifiedDate = res.IdentifiedDate
	rec.IdentifiedAmount = res.IdentifiedAmount
	rec.ErrorMessage = res.ErrorMessage
	if res.State == extraction.StateProcessed {
		rec.State = models.ScanStateProcessed
	} else {
		rec.State = models.ScanStateError
	}
}

// save writes the final state of rec. The write outlives cancellation of
// ctx so that a timed-out or interrupted scan does not stay a draft.
func (s *Service) save(ctx context.Context, rec *models.ScanRecord) error {
	if s.records == nil {
		return nil
	}
	return s.records.Update(context.WithoutCancel(ctx), rec)
}

// CreateContact creates or refreshes the contact for a record's identifier
// and marks the record processed.
func (s *Service) CreateContact(ctx context.Context, recordID string) (*models.Contact, string, error) {
	const op = "CreateContact"

	if s.records == nil {
		return nil, "", WrapScanError(op, ErrNoRecordStore, recordID)
	}
	if s.contacts == nil {
		return nil, "", WrapScanError(op, ErrNoContactStore, recordID)
	}

	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		return nil, "", WrapScanError(op, err, recordID)
	}
	if rec.IdentifiedNumber == "" {
		return nil, "", WrapScanError(op, ErrNoIdentifier, recordID)
	}

	c, message, err := s.contacts.UpsertByReference(ctx, rec.IdentifiedNumber, rec.ScannedAt)
	if err != nil {
		return nil, "", WrapScanError(op, err, recordID)
	}

	rec.State = models.ScanStateProcessed
	if err := s.records.Update(ctx, rec); err != nil {
		return nil, "", WrapScanError(op, err, recordID)
	}

	s.log.Info().
		Str("record_id", recordID).
		Str("contact_id", c.ID).
		Msg(message)

	return c, message, nil
}
