// Package contact maintains contacts keyed by national identifier.
package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ocrscan/internal/database"
	"ocrscan/internal/extraction"
	"ocrscan/internal/logger"
	"ocrscan/pkg/models"
)

var (
	// ErrMissingReference is returned when no identifier was given.
	ErrMissingReference = errors.New("no identifier to create a contact from")

	// ErrNotFound is returned by GetByReference when no contact matches.
	ErrNotFound = errors.New("contact not found")
)

// Upsert outcome messages.
const (
	MessageUpdated = "updated existing contact"
	MessageCreated = "created new contact"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Repository reads and writes contacts.
type Repository struct {
	db     *sql.DB
	log    zerolog.Logger
	now    func() time.Time
	lookup func(ctx context.Context, q queryer, reference string) (*models.Contact, error)
}

// NewRepository creates a repository on an open, migrated database.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:     db,
		log:    logger.WithComponent("contact"),
		now:    time.Now,
		lookup: getByReference,
	}
}

// DisplayName is the name given to contacts created from a scan.
func DisplayName(reference string) string {
	return "Contact - " + reference
}

func scanComment(scannedAt time.Time) string {
	return "latest data from OCR scan on " + scannedAt.Format(extraction.DateLayout)
}

// UpsertByReference creates the contact for reference or refreshes the
// existing one, inside a single transaction. The returned message tells
// which of the two happened.
//
// When another writer inserts the same reference between the lookup and the
// insert, the upsert is retried once and takes the update path.
func (r *Repository) UpsertByReference(ctx context.Context, reference string, scannedAt time.Time) (*models.Contact, string, error) {
	if reference == "" {
		return nil, "", ErrMissingReference
	}

	c, message, err := r.upsert(ctx, reference, scannedAt)
	if errors.Is(err, errReferenceTaken) {
		r.log.Debug().
			Str("reference", reference).
			Msg("Contact inserted concurrently, retrying as update")
		c, message, err = r.upsert(ctx, reference, scannedAt)
	}
	if err != nil {
		return nil, "", err
	}

	r.log.Info().
		Str("contact_id", c.ID).
		Str("reference", reference).
		Msg(message)

	return c, message, nil
}

// errReferenceTaken reports a lost insert race on contacts.reference.
var errReferenceTaken = errors.New("reference inserted concurrently")

func (r *Repository) upsert(ctx context.Context, reference string, scannedAt time.Time) (*models.Contact, string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("contact: begin upsert %s: %w", reference, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.now().UTC()
	c := models.Contact{
		Reference: reference,
		Name:      DisplayName(reference),
		Comment:   scanComment(scannedAt),
		UpdatedAt: now,
	}

	existing, err := r.lookup(ctx, tx, reference)
	var message string
	switch {
	case err == nil:
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
		_, err = tx.ExecContext(ctx,
			`UPDATE contacts SET name = ?, comment = ?, updated_at = ? WHERE id = ?`,
			c.Name, c.Comment, now.Format(timeLayout), c.ID)
		if err != nil {
			return nil, "", fmt.Errorf("contact: update %s: %w", reference, err)
		}
		message = MessageUpdated
	case errors.Is(err, ErrNotFound):
		c.ID = uuid.NewString()
		c.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO contacts (id, reference, name, comment, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.Reference, c.Name, c.Comment, now.Format(timeLayout), now.Format(timeLayout))
		if database.IsDuplicateKey(err) {
			return nil, "", fmt.Errorf("contact: create %s: %w", reference, errors.Join(errReferenceTaken, err))
		}
		if err != nil {
			return nil, "", fmt.Errorf("contact: create %s: %w", reference, err)
		}
		message = MessageCreated
	default:
		return nil, "", err
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("contact: commit upsert %s: %w", reference, err)
	}
	return &c, message, nil
}

// GetByReference loads the contact for reference.
func (r *Repository) GetByReference(ctx context.Context, reference string) (*models.Contact, error) {
	return getByReference(ctx, r.db, reference)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getByReference(ctx context.Context, q queryer, reference string) (*models.Contact, error) {
	var (
		c                    models.Contact
		comment              sql.NullString
		createdAt, updatedAt string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, reference, name, comment, created_at, updated_at FROM contacts WHERE reference = ?`,
		reference,
	).Scan(&c.ID, &c.Reference, &c.Name, &comment, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contact: get %s: %w", reference, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("contact: get %s: %w", reference, err)
	}

	c.Comment = comment.String
	if c.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("contact: parse created_at %q: %w", createdAt, err)
	}
	if c.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("contact: parse updated_at %q: %w", updatedAt, err)
	}
	return &c, nil
}
