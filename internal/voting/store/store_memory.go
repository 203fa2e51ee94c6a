package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"asamblea/internal/voting/models"
	"asamblea/pkg/platform/sentinel"
)

// InMemoryQuestionStore keeps questions in a map guarded by a RWMutex.
type InMemoryQuestionStore struct {
	mu        sync.RWMutex
	questions map[string]models.Question
}

func NewInMemory() *InMemoryQuestionStore {
	return &InMemoryQuestionStore{questions: make(map[string]models.Question)}
}

func (s *InMemoryQuestionStore) Create(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[q.ID]; ok {
		return sentinel.ErrConflict
	}
	s.questions[q.ID] = clone(*q)
	return nil
}

func (s *InMemoryQuestionStore) FindByID(_ context.Context, id string) (*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(q)
	return &out, nil
}

// ListByAssembly returns the assembly's questions oldest first.
func (s *InMemoryQuestionStore) ListByAssembly(_ context.Context, assemblyID string) ([]*models.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Question, 0)
	for _, q := range s.questions {
		if q.AssemblyID != assemblyID {
			continue
		}
		c := clone(q)
		out = append(out, &c)
	}
	sortQuestions(out)
	return out, nil
}

// Execute applies mutate to a copy and stores it only on success. Answers
// are not written through Execute.
func (s *InMemoryQuestionStore) Execute(_ context.Context, id string, mutate func(*models.Question) error) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.questions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := clone(current)
	if err := mutate(&working); err != nil {
		return nil, err
	}
	working.Answers = current.Answers
	s.questions[id] = clone(working)
	out := clone(working)
	return &out, nil
}

// SubmitAnswers writes every answer or none. The question must be LIVE at
// write time and none of the keys may already be answered.
func (s *InMemoryQuestionStore) SubmitAnswers(_ context.Context, id string, answers map[string]models.Answer, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if q.Status != models.StatusLive {
		return sentinel.ErrInvalidState
	}
	for key := range answers {
		if _, taken := q.Answers[key]; taken {
			return fmt.Errorf("property %s already answered: %w", key, sentinel.ErrConflict)
		}
	}
	q = clone(q)
	for key, a := range answers {
		a.Options = slices.Clone(a.Options)
		q.Answers[key] = a
	}
	q.UpdatedAt = now
	s.questions[id] = q
	return nil
}

func clone(q models.Question) models.Question {
	q.Options = slices.Clone(q.Options)
	answers := make(map[string]models.Answer, len(q.Answers))
	for k, a := range q.Answers {
		a.Options = slices.Clone(a.Options)
		answers[k] = a
	}
	q.Answers = answers
	return q
}

func sortQuestions(qs []*models.Question) {
	slices.SortFunc(qs, func(a, b *models.Question) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func sortedKeys(answers map[string]models.Answer) []string {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
