package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"asamblea/internal/registry/models"
	"asamblea/pkg/platform/sentinel"
	pstrings "asamblea/pkg/platform/strings"
	"asamblea/pkg/platform/tx"
)

const uniqueViolation = "23505"

const selectColumns = `id, owner_document, group_label, property_label, coefficient, votes,
	registered_in_assembly, is_deleted, vote_blocked, registration`

// PostgresRegistryStore persists property records in registry_properties.
// Owner documents are matched on a normalized shadow column.
type PostgresRegistryStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRegistryStore {
	return &PostgresRegistryStore{db: db}
}

func (s *PostgresRegistryStore) Import(ctx context.Context, listID string, records []models.PropertyRecord) error {
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		conn := tx.Conn(ctx, s.db)
		for _, rec := range records {
			_, err := conn.ExecContext(ctx, `
				INSERT INTO registry_properties (list_id, id, owner_document, owner_document_norm, group_label,
					property_label, coefficient, votes, registered_in_assembly, is_deleted, vote_blocked)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				listID, rec.ID, rec.OwnerDocument, pstrings.NormalizeDocument(rec.OwnerDocument), rec.Group,
				rec.Property, rec.Coefficient, rec.Votes, rec.RegisteredInAssembly, rec.IsDeleted, rec.VoteBlocked,
			)
			if err != nil {
				var pqErr *pq.Error
				if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
					return sentinel.ErrConflict
				}
				return fmt.Errorf("insert property %s: %w", rec.ID, err)
			}
		}
		return nil
	})
	return err
}

func (s *PostgresRegistryStore) List(ctx context.Context, listID string) (models.Registry, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM registry_properties WHERE list_id = $1`, listID)
}

func (s *PostgresRegistryStore) ListByOwner(ctx context.Context, listID, document string) (models.Registry, error) {
	return s.query(ctx, `SELECT `+selectColumns+` FROM registry_properties
		WHERE list_id = $1 AND owner_document_norm = $2`, listID, pstrings.NormalizeDocument(document))
}

func (s *PostgresRegistryStore) FindByID(ctx context.Context, listID, id string) (*models.PropertyRecord, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM registry_properties WHERE list_id = $1 AND id = $2`, listID, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find property: %w", err)
	}
	return rec, nil
}

// Update writes only the columns the patch sets.
func (s *PostgresRegistryStore) Update(ctx context.Context, listID, id string, patch models.Patch) (*models.PropertyRecord, error) {
	sets := make([]string, 0, 4)
	args := []any{listID, id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.RegisteredInAssembly != nil {
		add("registered_in_assembly", *patch.RegisteredInAssembly)
	}
	if patch.IsDeleted != nil {
		add("is_deleted", *patch.IsDeleted)
	}
	if patch.VoteBlocked != nil {
		add("vote_blocked", *patch.VoteBlocked)
	}
	if patch.Registration != nil {
		stamp, err := json.Marshal(patch.Registration)
		if err != nil {
			return nil, fmt.Errorf("marshal registration stamp: %w", err)
		}
		add("registration", stamp)
	}
	if len(sets) == 0 {
		return s.FindByID(ctx, listID, id)
	}
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`UPDATE registry_properties SET `+strings.Join(sets, ", ")+`
		WHERE list_id = $1 AND id = $2
		RETURNING `+selectColumns, args...)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("update property: %w", err)
	}
	return rec, nil
}

// StampIfUnclaimed claims the record in a single conditional update. A
// record already claimed by the same attendee is re-stamped.
func (s *PostgresRegistryStore) StampIfUnclaimed(ctx context.Context, listID, id string, stamp models.RegistrationStamp) (*models.PropertyRecord, error) {
	payload, err := json.Marshal(stamp)
	if err != nil {
		return nil, fmt.Errorf("marshal registration stamp: %w", err)
	}
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		UPDATE registry_properties SET registered_in_assembly = TRUE, registration = $3
		WHERE list_id = $1 AND id = $2 AND is_deleted = FALSE
			AND (registered_in_assembly = FALSE OR registration->>'attendee_id' = $4)
		RETURNING `+selectColumns, listID, id, payload, stamp.AttendeeID)
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stamp property: %w", err)
	}
	current, findErr := s.FindByID(ctx, listID, id)
	if findErr != nil {
		return nil, findErr
	}
	if err := current.CanStamp(stamp.AttendeeID); err != nil {
		return nil, err
	}
	// The row changed between the update and the read; report it as taken.
	return nil, fmt.Errorf("stamp property %s: %w", id, sentinel.ErrConflict)
}

func (s *PostgresRegistryStore) SoftDeleteIfUnregistered(ctx context.Context, listID, id string) (*models.PropertyRecord, error) {
	row := tx.Conn(ctx, s.db).QueryRowContext(ctx, `
		UPDATE registry_properties SET is_deleted = TRUE
		WHERE list_id = $1 AND id = $2 AND registered_in_assembly = FALSE
		RETURNING `+selectColumns, listID, id)
	rec, err := scanRecord(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("soft delete property: %w", err)
	}
	// No row updated: either missing or registered.
	if _, findErr := s.FindByID(ctx, listID, id); findErr != nil {
		return nil, findErr
	}
	return nil, sentinel.ErrInvalidState
}

func (s *PostgresRegistryStore) query(ctx context.Context, query string, args ...any) (models.Registry, error) {
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	out := make(models.Registry)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan property: %w", err)
		}
		out[rec.ID] = *rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.PropertyRecord, error) {
	var (
		rec   models.PropertyRecord
		stamp []byte
	)
	if err := row.Scan(
		&rec.ID, &rec.OwnerDocument, &rec.Group, &rec.Property, &rec.Coefficient, &rec.Votes,
		&rec.RegisteredInAssembly, &rec.IsDeleted, &rec.VoteBlocked, &stamp,
	); err != nil {
		return nil, err
	}
	if len(stamp) > 0 {
		rec.Registration = &models.RegistrationStamp{}
		if err := json.Unmarshal(stamp, rec.Registration); err != nil {
			return nil, fmt.Errorf("decode registration stamp: %w", err)
		}
	}
	return &rec, nil
}
