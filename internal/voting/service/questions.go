package service

import (
	"context"
	"errors"

	assemblyModels "asamblea/internal/assembly/models"
	"asamblea/internal/voting/models"
	dErrors "asamblea/pkg/domain-errors"
	audit "asamblea/pkg/platform/audit"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/requestcontext"
)

type CreateQuestionRequest struct {
	Title   string              `json:"title"`
	Type    models.QuestionType `json:"type"`
	Options []string            `json:"options"`
}

// CreateQuestion adds a question in status CREATED to an assembly that has
// not finished.
func (s *Service) CreateQuestion(ctx context.Context, assemblyID string, req CreateQuestionRequest) (*models.Question, error) {
	asm, err := s.assembly(ctx, assemblyID)
	if err != nil {
		return nil, err
	}
	if asm.Status == assemblyModels.StatusFinished {
		return nil, dErrors.New(dErrors.CodeInvalidState, "assembly has finished")
	}
	q, err := models.NewQuestion(s.newID(), asm.ID, req.Title, req.Type, req.Options, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.questions.Create(ctx, q); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "question already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create question")
	}
	s.logAudit(ctx, audit.EventQuestionCreated, auditEntry{AssemblyID: asm.ID, QuestionID: q.ID}, "type", string(q.Type))
	s.publish(ctx, q.ID, "created")
	return q, nil
}

// Questions lists every question of an assembly, answers included.
func (s *Service) Questions(ctx context.Context, assemblyID string) ([]*models.Question, error) {
	if _, err := s.assembly(ctx, assemblyID); err != nil {
		return nil, err
	}
	qs, err := s.questions.ListByAssembly(ctx, assemblyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list questions")
	}
	return qs, nil
}

// Launch opens a question for voting.
func (s *Service) Launch(ctx context.Context, questionID string) (*models.Question, error) {
	return s.transition(ctx, questionID, models.StatusLive)
}

// Finish closes voting; later submissions are rejected.
func (s *Service) Finish(ctx context.Context, questionID string) (*models.Question, error) {
	return s.transition(ctx, questionID, models.StatusFinished)
}

func (s *Service) Cancel(ctx context.Context, questionID string) (*models.Question, error) {
	return s.transition(ctx, questionID, models.StatusCanceled)
}

func (s *Service) transition(ctx context.Context, questionID string, next models.Status) (*models.Question, error) {
	now := requestcontext.Now(ctx)
	var from models.Status
	q, err := s.questions.Execute(ctx, questionID, func(q *models.Question) error {
		from = q.Status
		return q.TransitionTo(next, now)
	})
	if err != nil {
		var de *dErrors.Error
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "question not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "question changed concurrently, please retry")
		case errors.As(err, &de):
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update question")
	}
	s.metrics.IncrementTransition(string(next))
	s.logAudit(ctx, audit.EventQuestionStatusChanged, auditEntry{AssemblyID: q.AssemblyID, QuestionID: q.ID},
		"from", string(from), "to", string(next))
	s.publish(ctx, q.ID, "status_changed")
	return q, nil
}

// Results tallies a question from the coefficient snapshots on its answers.
func (s *Service) Results(ctx context.Context, questionID string) (models.Results, error) {
	q, err := s.question(ctx, questionID)
	if err != nil {
		return models.Results{}, err
	}
	return q.Tally(), nil
}
