package models

import (
	"fmt"
	"slices"
	"strings"
	"time"

	dErrors "asamblea/pkg/domain-errors"
	pstrings "asamblea/pkg/platform/strings"
)

type QuestionType string

const (
	TypeMultiple QuestionType = "MULTIPLE"
	TypeUnique   QuestionType = "UNIQUE"
	TypeYesNo    QuestionType = "YES_NO"
	TypeOpen     QuestionType = "OPEN"
)

func (t QuestionType) IsValid() bool {
	switch t {
	case TypeMultiple, TypeUnique, TypeYesNo, TypeOpen:
		return true
	}
	return false
}

// YesNoOptions are the options every YES_NO question carries.
var YesNoOptions = []string{"Sí", "No"}

type Status string

const (
	StatusCreated  Status = "CREATED"
	StatusLive     Status = "LIVE"
	StatusFinished Status = "FINISHED"
	StatusCanceled Status = "CANCELED"
)

var allowedTransitions = map[Status][]Status{
	StatusCreated: {StatusLive, StatusCanceled},
	StatusLive:    {StatusFinished, StatusCanceled},
}

func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(allowedTransitions[s], next)
}

// Answer is one property's vote on a question. Coefficient and Votes are
// snapshots taken when the ballot was cast so results never re-read the
// registry.
type Answer struct {
	Options     []string  `json:"options,omitempty" bson:"options,omitempty"`
	Text        string    `json:"text,omitempty" bson:"text,omitempty"`
	Coefficient float64   `json:"coefficient" bson:"coefficient"`
	Votes       float64   `json:"votes" bson:"votes"`
	AttendeeID  string    `json:"attendee_id,omitempty" bson:"attendee_id,omitempty"`
	SubmittedAt time.Time `json:"submitted_at" bson:"submitted_at"`
}

// SameContent reports whether two answers carry the same selection.
func (a Answer) SameContent(b Answer) bool {
	return a.Text == b.Text && slices.Equal(a.Options, b.Options)
}

// Question is a poll within an assembly.
//
// Invariants:
//   - Answers holds at most one answer per property key
//   - Options are unique and non-empty for choice types, empty for OPEN
type Question struct {
	ID         string            `json:"id" bson:"_id"`
	AssemblyID string            `json:"assembly_id" bson:"assembly_id"`
	Title      string            `json:"title" bson:"title"`
	Type       QuestionType      `json:"type" bson:"type"`
	Options    []string          `json:"options" bson:"options"`
	Status     Status            `json:"status" bson:"status"`
	Answers    map[string]Answer `json:"answers" bson:"answers"`
	CreatedAt  time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" bson:"updated_at"`
}

// NewQuestion validates the definition. YES_NO questions always get the
// default options.
func NewQuestion(id, assemblyID, title string, qType QuestionType, options []string, now time.Time) (*Question, error) {
	title = strings.TrimSpace(title)
	if id == "" || assemblyID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "question and assembly ids are required")
	}
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if !qType.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid question type %q", qType))
	}
	switch qType {
	case TypeYesNo:
		options = slices.Clone(YesNoOptions)
	case TypeOpen:
		options = []string{}
	default:
		cleaned := pstrings.DedupeAndTrim(options)
		if len(cleaned) != len(options) {
			return nil, dErrors.New(dErrors.CodeValidation, "options must be unique and non-empty")
		}
		if len(cleaned) < 2 {
			return nil, dErrors.New(dErrors.CodeValidation, "at least two options are required")
		}
		options = cleaned
	}
	return &Question{
		ID:         id,
		AssemblyID: assemblyID,
		Title:      title,
		Type:       qType,
		Options:    options,
		Status:     StatusCreated,
		Answers:    map[string]Answer{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (q *Question) TransitionTo(next Status, now time.Time) error {
	if !q.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("question cannot move from %s to %s", q.Status, next))
	}
	q.Status = next
	q.UpdatedAt = now
	return nil
}

// HasAnswer reports whether key already voted.
func (q *Question) HasAnswer(key string) bool {
	_, ok := q.Answers[key]
	return ok
}

// AnswerCount counts the answers among keys.
func (q *Question) AnswerCount(keys []string) int {
	n := 0
	for _, k := range keys {
		if q.HasAnswer(k) {
			n++
		}
	}
	return n
}

// VisibleTo hides finished questions the caller never answered.
func (q *Question) VisibleTo(keys []string) bool {
	if q.Status == StatusFinished {
		return q.AnswerCount(keys) > 0
	}
	return true
}

// Selection is the caller's raw choice before it becomes an Answer.
type Selection struct {
	Options []string `json:"options,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// IsEmpty reports whether nothing was selected.
func (s Selection) IsEmpty() bool {
	return len(s.Options) == 0 && strings.TrimSpace(s.Text) == ""
}

// Validate checks sel against the question type and returns it normalized.
//
//	UNIQUE, YES_NO: exactly one known option
//	MULTIPLE: one or more distinct known options
//	OPEN: non-empty text
func (q *Question) Validate(sel Selection) (Selection, error) {
	switch q.Type {
	case TypeOpen:
		text := strings.TrimSpace(sel.Text)
		if text == "" {
			return Selection{}, dErrors.New(dErrors.CodeValidation, "an answer text is required")
		}
		return Selection{Text: text}, nil
	case TypeUnique, TypeYesNo, TypeMultiple:
		opts := pstrings.DedupeAndTrim(sel.Options)
		if len(opts) == 0 {
			return Selection{}, dErrors.New(dErrors.CodeValidation, "an option is required")
		}
		if q.Type != TypeMultiple && len(opts) != 1 {
			return Selection{}, dErrors.New(dErrors.CodeValidation, "exactly one option is allowed")
		}
		for _, o := range opts {
			if !slices.Contains(q.Options, o) {
				return Selection{}, dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown option %q", o))
			}
		}
		return Selection{Options: opts}, nil
	}
	return Selection{}, dErrors.New(dErrors.CodeValidation, "unsupported question type")
}

// OptionResult is the tally for one option.
type OptionResult struct {
	Option      string  `json:"option"`
	Count       int     `json:"count"`
	Coefficient float64 `json:"coefficient"`
	Votes       float64 `json:"votes"`
}

// Results summarizes a question's answers.
type Results struct {
	QuestionID       string         `json:"question_id"`
	Status           Status         `json:"status"`
	TotalAnswers     int            `json:"total_answers"`
	TotalCoefficient float64        `json:"total_coefficient"`
	Options          []OptionResult `json:"options"`
	// Texts lists free-text answers of OPEN questions, ordered by property key.
	Texts []string `json:"texts,omitempty"`
}

// Tally counts answers per option using the snapshots stored on each answer.
func (q *Question) Tally() Results {
	res := Results{QuestionID: q.ID, Status: q.Status, Options: make([]OptionResult, len(q.Options))}
	index := make(map[string]int, len(q.Options))
	for i, o := range q.Options {
		res.Options[i] = OptionResult{Option: o}
		index[o] = i
	}
	keys := make([]string, 0, len(q.Answers))
	for k := range q.Answers {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		a := q.Answers[k]
		res.TotalAnswers++
		res.TotalCoefficient += a.Coefficient
		if q.Type == TypeOpen {
			res.Texts = append(res.Texts, a.Text)
			continue
		}
		for _, o := range a.Options {
			i, ok := index[o]
			if !ok {
				continue
			}
			res.Options[i].Count++
			res.Options[i].Coefficient += a.Coefficient
			res.Options[i].Votes += a.Votes
		}
	}
	return res
}
