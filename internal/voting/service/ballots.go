package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	assemblyModels "asamblea/internal/assembly/models"
	"asamblea/internal/voting/ballot"
	"asamblea/internal/voting/models"
	dErrors "asamblea/pkg/domain-errors"
	audit "asamblea/pkg/platform/audit"
	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/requestcontext"
)

// BallotRequest is one submission. Mode is only needed when the caller has
// not chosen one yet; Selection is used in block mode and Selections, keyed
// by property key, in individual mode.
type BallotRequest struct {
	Mode       assemblyModels.VotingMode   `json:"mode,omitempty"`
	Selection  models.Selection            `json:"selection"`
	Selections map[string]models.Selection `json:"selections,omitempty"`
}

type BallotResult struct {
	QuestionID   string                    `json:"question_id"`
	Mode         assemblyModels.VotingMode `json:"mode"`
	AlreadyVoted bool                      `json:"already_voted"`
	Answered     []string                  `json:"answered"`
	Skipped      []string                  `json:"skipped,omitempty"`
	Ignored      []string                  `json:"ignored,omitempty"`

	// AlreadyAnswered are planned keys another submission answered first.
	AlreadyAnswered []string `json:"already_answered,omitempty"`
}

// maxBallotAttempts bounds how often a batch is retried after losing keys
// to a concurrent submission.
const maxBallotAttempts = 3

// Submit casts the caller's ballot on a question. Rights are computed from
// fresh reads, then every answer is written in one atomic batch. When
// nothing is pending the call is a no-op reported as AlreadyVoted.
func (s *Service) Submit(ctx context.Context, sessionID, questionID string, req BallotRequest) (*BallotResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "voting.submit")
	defer span.End()
	span.SetAttributes(attribute.String("question.id", questionID))

	res, err := s.submit(ctx, sessionID, questionID, req)
	s.metrics.ObserveSubmitLatency(time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ballot rejected")
		s.metrics.IncrementBallot(string(req.Mode), "rejected")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("ballot.mode", string(res.Mode)),
		attribute.Int("ballot.answers", len(res.Answered)),
	)
	return res, nil
}

func (s *Service) submit(ctx context.Context, sessionID, questionID string, req BallotRequest) (*BallotResult, error) {
	v, err := s.loadVoter(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	q, err := s.question(ctx, questionID)
	if err != nil {
		return nil, err
	}
	if q.AssemblyID != v.assembly.ID {
		return nil, dErrors.New(dErrors.CodeNotFound, "question not found")
	}

	mode, err := s.chooseMode(ctx, v, req.Mode)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	plan, err := ballot.Build(ballot.Request{
		Question:   q,
		Active:     v.active,
		Mode:       mode,
		AttendeeID: v.attendee.ID,
		Selection:  req.Selection,
		Selections: req.Selections,
		Now:        now,
	})
	if err != nil {
		return nil, err
	}
	result := &BallotResult{
		QuestionID:   q.ID,
		Mode:         mode,
		AlreadyVoted: plan.AlreadyVoted,
		Answered:     plan.Keys(),
		Skipped:      plan.Skipped,
		Ignored:      plan.Ignored,
	}
	if plan.AlreadyVoted {
		s.metrics.IncrementBallot(string(mode), "already_voted")
		return result, nil
	}

	answers, err := s.writeAnswers(ctx, q, plan.Answers, now, result)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		s.metrics.IncrementBallot(string(mode), "already_voted")
		return result, nil
	}

	s.metrics.IncrementBallot(string(mode), "written")
	s.metrics.AddAnswers(len(answers))
	s.logAudit(ctx, audit.EventBallotSubmitted, auditEntry{
		AssemblyID: q.AssemblyID,
		AttendeeID: v.attendee.ID,
		QuestionID: q.ID,
	}, "mode", string(mode), "answers", len(answers), "skipped", len(plan.Skipped))
	s.publish(ctx, q.ID, "answered")
	return result, nil
}

// writeAnswers stores the batch. Stores never overwrite an answer: when a
// concurrent submission got to some keys first the batch is rejected whole,
// those keys move to result.AlreadyAnswered and the remainder is retried.
// It returns the answers actually written.
func (s *Service) writeAnswers(ctx context.Context, q *models.Question, answers map[string]models.Answer, now time.Time, result *BallotResult) (map[string]models.Answer, error) {
	for attempt := 1; ; attempt++ {
		err := s.questions.SubmitAnswers(ctx, q.ID, answers, now)
		switch {
		case err == nil:
			return answers, nil
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "question not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeInvalidState, "question is no longer open for voting")
		case !errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record ballot, please retry")
		case attempt == maxBallotAttempts:
			return nil, dErrors.Wrap(err, dErrors.CodeConflict, "ballot collided with another submission, please retry")
		}

		fresh, err := s.question(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		remaining := make(map[string]models.Answer, len(answers))
		for key, a := range answers {
			if fresh.HasAnswer(key) {
				result.AlreadyAnswered = append(result.AlreadyAnswered, key)
				continue
			}
			remaining[key] = a
		}
		slices.Sort(result.AlreadyAnswered)
		answers = remaining
		result.Answered = sortedKeys(answers)
		if len(answers) == 0 {
			result.AlreadyVoted = true
			return answers, nil
		}
	}
}

func sortedKeys(answers map[string]models.Answer) []string {
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// chooseMode resolves the mode for this ballot. A requested mode only
// applies when neither the assembly nor a single property dictates one, and
// it is remembered for the rest of the session.
func (s *Service) chooseMode(ctx context.Context, v *voter, requested assemblyModels.VotingMode) (assemblyModels.VotingMode, error) {
	res := ballot.ResolveMode(v.assembly.Config, len(v.active), v.session.VotingMode)
	if res.Source == ballot.SourceAssembly || res.Source == ballot.SourceSingleProperty {
		return res.Mode, nil
	}
	if requested != "" {
		if !requested.IsValid() {
			return "", dErrors.New(dErrors.CodeValidation, "mode must be block or individual")
		}
		if err := s.remember(ctx, v.session, requested); err != nil {
			return "", err
		}
		return requested, nil
	}
	if res.NeedsChoice() {
		return "", dErrors.New(dErrors.CodeValidation, "choose a voting mode first")
	}
	return res.Mode, nil
}
