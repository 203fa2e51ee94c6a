package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"asamblea/internal/registration/models"
	"asamblea/pkg/platform/sentinel"
	pstrings "asamblea/pkg/platform/strings"
	"asamblea/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresAttendeeStore persists attendees; entries are a JSONB column.
// UNIQUE (assembly_id, document_norm) backs the one-per-document rule.
type PostgresAttendeeStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresAttendeeStore {
	return &PostgresAttendeeStore{db: db}
}

func (s *PostgresAttendeeStore) Create(ctx context.Context, attendee *models.Attendee) error {
	stored := copyAttendee(*attendee)
	entries, err := json.Marshal(stored.Entries)
	if err != nil {
		return fmt.Errorf("marshal entries: %w", err)
	}
	_, err = tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO attendees (id, assembly_id, document, document_norm, first_name, last_name, email, phone, entries, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		stored.ID, stored.AssemblyID, stored.Document, pstrings.NormalizeDocument(stored.Document),
		stored.Contact.FirstName, stored.Contact.LastName, stored.Contact.Email, stored.Contact.Phone,
		entries, stored.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("%w: insert attendee: %v", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (s *PostgresAttendeeStore) FindByID(ctx context.Context, id string) (*models.Attendee, error) {
	return s.findOne(ctx, `WHERE id = $1`, id)
}

func (s *PostgresAttendeeStore) FindByDocument(ctx context.Context, assemblyID, document string) (*models.Attendee, error) {
	return s.findOne(ctx, `WHERE assembly_id = $1 AND document_norm = $2`, assemblyID, pstrings.NormalizeDocument(document))
}

func (s *PostgresAttendeeStore) findOne(ctx context.Context, where string, args ...any) (*models.Attendee, error) {
	var (
		a       models.Attendee
		entries []byte
	)
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, assembly_id, document, first_name, last_name, email, phone, entries, created_at
		FROM attendees `+where, args...).Scan(
		&a.ID, &a.AssemblyID, &a.Document,
		&a.Contact.FirstName, &a.Contact.LastName, &a.Contact.Email, &a.Contact.Phone,
		&entries, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%w: find attendee: %v", sentinel.ErrUnavailable, err)
	}
	if err := json.Unmarshal(entries, &a.Entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return &a, nil
}
