// Package ballot plans ballot submissions: which voting mode applies to a
// caller and which answers one submission writes. Everything here is pure;
// the voting service reads the inputs and performs the single atomic write.
package ballot

import (
	"slices"
	"time"

	assemblyModels "asamblea/internal/assembly/models"
	registryModels "asamblea/internal/registry/models"
	"asamblea/internal/voting/models"
	dErrors "asamblea/pkg/domain-errors"
)

// ModeSource explains where a resolved mode came from.
type ModeSource string

const (
	SourceAssembly       ModeSource = "assembly"
	SourceSingleProperty ModeSource = "single_property"
	SourceSession        ModeSource = "session"
	// SourceUnresolved means the caller has to choose before voting.
	SourceUnresolved ModeSource = ""
)

type ModeResolution struct {
	Mode   assemblyModels.VotingMode `json:"mode,omitempty"`
	Source ModeSource                `json:"source"`
}

// NeedsChoice reports whether the caller must pick a mode.
func (r ModeResolution) NeedsChoice() bool {
	return r.Source == SourceUnresolved
}

// ResolveMode applies, in order: the assembly's fixed mode, block for a
// single active property, then the session's remembered preference.
func ResolveMode(cfg assemblyModels.Config, activeCount int, remembered assemblyModels.VotingMode) ModeResolution {
	if mode, ok := cfg.FixedVotingMode(); ok {
		return ModeResolution{Mode: mode, Source: SourceAssembly}
	}
	if activeCount == 1 {
		return ModeResolution{Mode: assemblyModels.VotingModeBlock, Source: SourceSingleProperty}
	}
	if remembered.IsValid() {
		return ModeResolution{Mode: remembered, Source: SourceSession}
	}
	return ModeResolution{}
}

// Partition splits active properties into those without an answer on q and
// those that already voted, preserving order.
func Partition(q *models.Question, active []registryModels.PropertyRecord) (pending, voted []registryModels.PropertyRecord) {
	for _, rec := range active {
		if q.HasAnswer(rec.ID) {
			voted = append(voted, rec)
		} else {
			pending = append(pending, rec)
		}
	}
	return pending, voted
}

// Request is one submission attempt.
type Request struct {
	Question   *models.Question
	Active     []registryModels.PropertyRecord
	Mode       assemblyModels.VotingMode
	AttendeeID string
	// Selection applies to every pending property in block mode.
	Selection models.Selection
	// Selections maps property keys to choices in individual mode.
	Selections map[string]models.Selection
	Now        time.Time
}

// Plan is the batch a submission writes.
type Plan struct {
	// AlreadyVoted is set when nothing was pending; Answers is empty then.
	AlreadyVoted bool
	Answers      map[string]models.Answer
	// Skipped are pending keys with no selection in individual mode.
	Skipped []string
	// Ignored are selection keys that are not pending: already answered,
	// blocked or not the caller's.
	Ignored []string
}

// Keys returns the answered property keys in order.
func (p Plan) Keys() []string {
	keys := make([]string, 0, len(p.Answers))
	for k := range p.Answers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Build validates a request and produces the answers to write.
func Build(req Request) (Plan, error) {
	q := req.Question
	if q == nil {
		return Plan{}, dErrors.New(dErrors.CodeNotFound, "question not found")
	}
	if q.Status != models.StatusLive {
		return Plan{}, dErrors.New(dErrors.CodeInvalidState, "question is not open for voting")
	}
	if !req.Mode.IsValid() {
		return Plan{}, dErrors.New(dErrors.CodeValidation, "a voting mode is required")
	}

	pending, _ := Partition(q, req.Active)
	if len(pending) == 0 {
		return Plan{AlreadyVoted: true, Answers: map[string]models.Answer{}}, nil
	}

	plan := Plan{Answers: make(map[string]models.Answer, len(pending))}
	switch req.Mode {
	case assemblyModels.VotingModeBlock:
		sel, err := q.Validate(req.Selection)
		if err != nil {
			return Plan{}, err
		}
		for _, rec := range pending {
			plan.Answers[rec.ID] = answerFor(rec, sel, req)
		}
	case assemblyModels.VotingModeIndividual:
		byKey := make(map[string]registryModels.PropertyRecord, len(pending))
		for _, rec := range pending {
			byKey[rec.ID] = rec
		}
		for key := range req.Selections {
			if _, ok := byKey[key]; !ok {
				plan.Ignored = append(plan.Ignored, key)
			}
		}
		slices.Sort(plan.Ignored)
		for _, rec := range pending {
			raw, ok := req.Selections[rec.ID]
			if !ok || raw.IsEmpty() {
				plan.Skipped = append(plan.Skipped, rec.ID)
				continue
			}
			sel, err := q.Validate(raw)
			if err != nil {
				return Plan{}, dErrors.Wrap(err, dErrors.CodeValidation, "invalid answer for "+rec.ID)
			}
			plan.Answers[rec.ID] = answerFor(rec, sel, req)
		}
		if len(plan.Answers) == 0 {
			return Plan{}, dErrors.New(dErrors.CodeValidation, "select an answer for at least one property")
		}
	}
	return plan, nil
}

func answerFor(rec registryModels.PropertyRecord, sel models.Selection, req Request) models.Answer {
	return models.Answer{
		Options:     slices.Clone(sel.Options),
		Text:        sel.Text,
		Coefficient: rec.Coefficient,
		Votes:       rec.Votes,
		AttendeeID:  req.AttendeeID,
		SubmittedAt: req.Now,
	}
}
