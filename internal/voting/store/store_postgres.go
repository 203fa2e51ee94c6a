package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"asamblea/internal/voting/models"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresQuestionStore keeps question definitions in questions and one row
// per property vote in question_answers.
type PostgresQuestionStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresQuestionStore {
	return &PostgresQuestionStore{db: db}
}

func (s *PostgresQuestionStore) Create(ctx context.Context, q *models.Question) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO questions (id, assembly_id, title, type, options, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID, q.AssemblyID, q.Title, string(q.Type), pq.Array(q.Options), string(q.Status), q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *PostgresQuestionStore) FindByID(ctx context.Context, id string) (*models.Question, error) {
	conn := tx.Conn(ctx, s.db)
	q, err := s.find(ctx, conn, id, false)
	if err != nil {
		return nil, err
	}
	if err := s.loadAnswers(ctx, conn, map[string]*models.Question{q.ID: q}); err != nil {
		return nil, err
	}
	return q, nil
}

// ListByAssembly returns the assembly's questions oldest first, answers
// included.
func (s *PostgresQuestionStore) ListByAssembly(ctx context.Context, assemblyID string) ([]*models.Question, error) {
	conn := tx.Conn(ctx, s.db)
	rows, err := conn.QueryContext(ctx, `
		SELECT id, assembly_id, title, type, options, status, created_at, updated_at
		FROM questions WHERE assembly_id = $1
		ORDER BY created_at, id`, assemblyID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []*models.Question
	byID := make(map[string]*models.Question)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(out) == 0 {
		return []*models.Question{}, nil
	}
	if err := s.loadAnswers(ctx, conn, byID); err != nil {
		return nil, err
	}
	return out, nil
}

// Execute locks the question row and writes back the definition and status.
// Answers are only written by SubmitAnswers.
func (s *PostgresQuestionStore) Execute(ctx context.Context, id string, mutate func(*models.Question) error) (*models.Question, error) {
	var out *models.Question
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		conn := tx.Conn(ctx, s.db)
		q, err := s.find(ctx, conn, id, true)
		if err != nil {
			return err
		}
		if err := s.loadAnswers(ctx, conn, map[string]*models.Question{q.ID: q}); err != nil {
			return err
		}
		if err := mutate(q); err != nil {
			return err
		}
		_, err = conn.ExecContext(ctx, `
			UPDATE questions SET title = $2, options = $3, status = $4, updated_at = $5
			WHERE id = $1`,
			q.ID, q.Title, pq.Array(q.Options), string(q.Status), q.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitAnswers inserts every answer in one transaction after checking,
// under a row lock, that the question is still LIVE. An existing answer for
// any key rolls the batch back with ErrConflict.
func (s *PostgresQuestionStore) SubmitAnswers(ctx context.Context, id string, answers map[string]models.Answer, now time.Time) error {
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		conn := tx.Conn(ctx, s.db)
		var status string
		err := conn.QueryRowContext(ctx, `SELECT status FROM questions WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock question: %w", err)
		}
		if models.Status(status) != models.StatusLive {
			return sentinel.ErrInvalidState
		}
		for _, key := range sortedKeys(answers) {
			a := answers[key]
			res, err := conn.ExecContext(ctx, `
				INSERT INTO question_answers
					(question_id, property_key, options, text, coefficient, votes, attendee_id, submitted_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (question_id, property_key) DO NOTHING`,
				id, key, pq.Array(a.Options), a.Text, a.Coefficient, a.Votes, a.AttendeeID, a.SubmittedAt,
			)
			if err != nil {
				return fmt.Errorf("write answer %s: %w", key, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("write answer %s: %w", key, err)
			}
			if n == 0 {
				return fmt.Errorf("property %s already answered: %w", key, sentinel.ErrConflict)
			}
		}
		if _, err := conn.ExecContext(ctx, `UPDATE questions SET updated_at = $2 WHERE id = $1`, id, now); err != nil {
			return fmt.Errorf("touch question: %w", err)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row scanner) (*models.Question, error) {
	var (
		q       models.Question
		qType   string
		status  string
		options []string
	)
	if err := row.Scan(&q.ID, &q.AssemblyID, &q.Title, &qType, pq.Array(&options), &status, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	q.Type = models.QuestionType(qType)
	q.Status = models.Status(status)
	q.Options = options
	if q.Options == nil {
		q.Options = []string{}
	}
	q.Answers = map[string]models.Answer{}
	return &q, nil
}

func (s *PostgresQuestionStore) find(ctx context.Context, conn tx.Execer, id string, forUpdate bool) (*models.Question, error) {
	query := `
		SELECT id, assembly_id, title, type, options, status, created_at, updated_at
		FROM questions WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}
	q, err := scanQuestion(conn.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find question: %w", err)
	}
	return q, nil
}

func (s *PostgresQuestionStore) loadAnswers(ctx context.Context, conn tx.Execer, byID map[string]*models.Question) error {
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	rows, err := conn.QueryContext(ctx, `
		SELECT question_id, property_key, options, text, coefficient, votes, attendee_id, submitted_at
		FROM question_answers WHERE question_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			questionID, key string
			a               models.Answer
			options         []string
		)
		if err := rows.Scan(&questionID, &key, pq.Array(&options), &a.Text, &a.Coefficient, &a.Votes, &a.AttendeeID, &a.SubmittedAt); err != nil {
			return fmt.Errorf("scan answer: %w", err)
		}
		if len(options) > 0 {
			a.Options = options
		}
		if q, ok := byID[questionID]; ok {
			q.Answers[key] = a
		}
	}
	return rows.Err()
}
