//go:build integration

package store_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"asamblea/internal/voting/models"
	"asamblea/internal/voting/store"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/testutil/containers"
)

type PostgresQuestionStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresQuestionStore
	now      time.Time
}

func TestPostgresQuestionStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresQuestionStoreSuite))
}

func (s *PostgresQuestionStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
	s.now = time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
}

func (s *PostgresQuestionStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "question_answers", "questions"))
}

func (s *PostgresQuestionStoreSuite) liveQuestion(id string) {
	ctx := context.Background()
	q, err := models.NewQuestion(id, "asm-1", "Approve budget?", models.TypeYesNo, nil, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, q))
	_, err = s.store.Execute(ctx, id, func(q *models.Question) error {
		return q.TransitionTo(models.StatusLive, s.now)
	})
	s.Require().NoError(err)
}

func (s *PostgresQuestionStoreSuite) TestConcurrentBatches() {
	ctx := context.Background()
	s.liveQuestion("q-1")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			batch := map[string]models.Answer{
				fmt.Sprintf("apt-%d", i): {Options: []string{"Sí"}, Coefficient: 1, Votes: 1, SubmittedAt: s.now},
				"apt-shared":             {Options: []string{"No"}, Coefficient: 2, Votes: 1, SubmittedAt: s.now},
			}
			errs <- s.store.SubmitAnswers(ctx, "q-1", batch, s.now)
		}()
	}
	wg.Wait()
	close(errs)
	written := 0
	for err := range errs {
		if err == nil {
			written++
			continue
		}
		s.ErrorIs(err, sentinel.ErrConflict)
	}
	s.Equal(1, written, "only one batch claims the shared key")

	q, err := s.store.FindByID(ctx, "q-1")
	s.Require().NoError(err)
	s.Len(q.Answers, 2, "losing batches leave nothing behind")
	s.Equal([]string{"No"}, q.Answers["apt-shared"].Options)
}

func (s *PostgresQuestionStoreSuite) TestSubmitAfterFinish() {
	ctx := context.Background()
	s.liveQuestion("q-2")
	_, err := s.store.Execute(ctx, "q-2", func(q *models.Question) error {
		return q.TransitionTo(models.StatusFinished, s.now)
	})
	s.Require().NoError(err)

	err = s.store.SubmitAnswers(ctx, "q-2", map[string]models.Answer{
		"apt-1": {Options: []string{"Sí"}, SubmittedAt: s.now},
	}, s.now)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	q, err := s.store.FindByID(ctx, "q-2")
	s.Require().NoError(err)
	s.Empty(q.Answers)
}
