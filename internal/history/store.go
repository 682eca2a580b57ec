// Package history persists scan records in the SQL database.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ocrscan/internal/logger"
	"ocrscan/pkg/models"
)

// ErrNotFound is returned when no record has the requested ID.
var ErrNotFound = errors.New("scan record not found")

const (
	// DefaultListLimit caps List when no limit is given.
	DefaultListLimit = 50

	// NoLimit makes List return every matching record.
	NoLimit = -1

	// Fixed width so that stored timestamps sort chronologically as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ListOptions filters and limits List results.
type ListOptions struct {
	State models.ScanState // empty lists every state
	Limit int              // 0 uses DefaultListLimit, NoLimit disables it
}

// Store reads and writes scan records.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
	now func() time.Time
}

// NewStore creates a store on an open, migrated database.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:  db,
		log: logger.WithComponent("history"),
		now: time.Now,
	}
}

const recordColumns = `id, filename, uploader, engine, image, raw_text, state,
	identified_number, identified_date, identified_amount, error_message,
	confidence, scanned_at, updated_at`

// Create inserts rec. An empty ID is replaced by a new UUID, an empty state
// by draft and a zero ScannedAt by the current time.
func (s *Store) Create(ctx context.Context, rec *models.ScanRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.State == "" {
		rec.State = models.ScanStateDraft
	}
	now := s.now().UTC()
	if rec.ScannedAt.IsZero() {
		rec.ScannedAt = now
	}
	rec.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_history (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Filename, rec.Uploader, rec.Engine, rec.Image, rec.RawText, string(rec.State),
		rec.IdentifiedNumber, rec.IdentifiedDate, nullFloat64(rec.IdentifiedAmount), rec.ErrorMessage,
		nullFloat32(rec.Confidence), formatTime(rec.ScannedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("history: create record %s: %w", rec.ID, err)
	}

	s.log.Debug().
		Str("record_id", rec.ID).
		Str("state", string(rec.State)).
		Msg("Scan record created")
	return nil
}

// Update overwrites every mutable field of an existing record.
func (s *Store) Update(ctx context.Context, rec *models.ScanRecord) error {
	rec.UpdatedAt = s.now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE scan_history SET filename = ?, uploader = ?, engine = ?, image = ?, raw_text = ?,
			state = ?, identified_number = ?, identified_date = ?, identified_amount = ?,
			error_message = ?, confidence = ?, updated_at = ?
		WHERE id = ?`,
		rec.Filename, rec.Uploader, rec.Engine, rec.Image, rec.RawText,
		string(rec.State), rec.IdentifiedNumber, rec.IdentifiedDate, nullFloat64(rec.IdentifiedAmount),
		rec.ErrorMessage, nullFloat32(rec.Confidence), formatTime(rec.UpdatedAt),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("history: update record %s: %w", rec.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("history: update record %s: %w", rec.ID, ErrNotFound)
	}

	s.log.Debug().
		Str("record_id", rec.ID).
		Str("state", string(rec.State)).
		Msg("Scan record updated")
	return nil
}

// Get loads the record with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*models.ScanRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM scan_history WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history: get record %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("history: get record %s: %w", id, err)
	}
	return rec, nil
}

// List returns records newest first. Images are not loaded.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*models.ScanRecord, error) {
	limit := opts.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}

	var (
		where []string
		args  []any
	)
	if opts.State != "" {
		where = append(where, "state = ?")
		args = append(args, string(opts.State))
	}

	query := `SELECT ` + strings.Replace(recordColumns, "image,", "NULL,", 1) + ` FROM scan_history`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scanned_at DESC, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list records: %w", err)
	}
	defer rows.Close()

	var records []*models.ScanRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("history: list records: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list records: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.ScanRecord, error) {
	var (
		rec        models.ScanRecord
		state      string
		rawText    sql.NullString
		errMsg     sql.NullString
		amount     sql.NullFloat64
		confidence sql.NullFloat64
		scannedAt  string
		updatedAt  string
	)
	err := row.Scan(
		&rec.ID, &rec.Filename, &rec.Uploader, &rec.Engine, &rec.Image, &rawText, &state,
		&rec.IdentifiedNumber, &rec.IdentifiedDate, &amount, &errMsg,
		&confidence, &scannedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.State = models.ScanState(state)
	rec.RawText = rawText.String
	rec.ErrorMessage = errMsg.String
	if amount.Valid {
		v := amount.Float64
		rec.IdentifiedAmount = &v
	}
	if confidence.Valid {
		v := float32(confidence.Float64)
		rec.Confidence = &v
	}
	if rec.ScannedAt, err = time.Parse(timeLayout, scannedAt); err != nil {
		return nil, fmt.Errorf("parse scanned_at %q: %w", scannedAt, err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	return &rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullFloat32(v *float32) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(*v), Valid: true}
}
