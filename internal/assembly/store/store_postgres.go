package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"asamblea/internal/assembly/models"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresAssemblyStore persists assemblies in the assemblies table.
type PostgresAssemblyStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresAssemblyStore {
	return &PostgresAssemblyStore{db: db}
}

func (s *PostgresAssemblyStore) Create(ctx context.Context, asm *models.Assembly) error {
	cfg, err := json.Marshal(asm.Config)
	if err != nil {
		return fmt.Errorf("marshal assembly config: %w", err)
	}
	_, err = tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO assemblies (id, entity_id, name, status, config, blocked_voters, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		asm.ID, asm.EntityID, asm.Name, string(asm.Status), cfg, pq.Array(asm.BlockedVoters), asm.CreatedAt, asm.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert assembly: %w", err)
	}
	return nil
}

func (s *PostgresAssemblyStore) FindByID(ctx context.Context, id string) (*models.Assembly, error) {
	return s.find(ctx, tx.Conn(ctx, s.db), id, false)
}

// Execute locks the row, applies mutate and writes the result back in one
// transaction.
func (s *PostgresAssemblyStore) Execute(ctx context.Context, id string, mutate func(*models.Assembly) error) (*models.Assembly, error) {
	var out *models.Assembly
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		conn := tx.Conn(ctx, s.db)
		asm, err := s.find(ctx, conn, id, true)
		if err != nil {
			return err
		}
		if err := mutate(asm); err != nil {
			return err
		}
		cfg, err := json.Marshal(asm.Config)
		if err != nil {
			return fmt.Errorf("marshal assembly config: %w", err)
		}
		_, err = conn.ExecContext(ctx, `
			UPDATE assemblies
			SET name = $2, status = $3, config = $4, blocked_voters = $5, updated_at = $6
			WHERE id = $1`,
			asm.ID, asm.Name, string(asm.Status), cfg, pq.Array(asm.BlockedVoters), asm.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update assembly: %w", err)
		}
		out = asm
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresAssemblyStore) find(ctx context.Context, conn tx.Execer, id string, forUpdate bool) (*models.Assembly, error) {
	query := `
		SELECT id, entity_id, name, status, config, blocked_voters, created_at, updated_at
		FROM assemblies WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	var (
		asm     models.Assembly
		status  string
		cfg     []byte
		blocked []string
	)
	err := conn.QueryRowContext(ctx, query, id).Scan(
		&asm.ID, &asm.EntityID, &asm.Name, &status, &cfg, pq.Array(&blocked), &asm.CreatedAt, &asm.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find assembly: %w", err)
	}
	if err := json.Unmarshal(cfg, &asm.Config); err != nil {
		return nil, fmt.Errorf("decode assembly config: %w", err)
	}
	asm.Status = models.Status(status)
	asm.BlockedVoters = blocked
	if asm.BlockedVoters == nil {
		asm.BlockedVoters = []string{}
	}
	return &asm, nil
}
