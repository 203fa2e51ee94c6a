// Package wizard sequences the registration flow as an explicit state
// machine. Transition is a pure function of (State, Event); persisting the
// state between requests and committing the result are the caller's job.
package wizard

import (
	"fmt"
	"slices"
	"strings"

	assemblyModels "asamblea/internal/assembly/models"
	registryModels "asamblea/internal/registry/models"
	"asamblea/internal/registration/models"
	dErrors "asamblea/pkg/domain-errors"
)

type Step string

const (
	StepAwaitingDocument    Step = "awaiting_document"
	StepAwaitingContactInfo Step = "awaiting_contact_info"
	StepVerifyingProperty   Step = "verifying_property"
	StepAdditionOrFinish    Step = "addition_or_finish"
	StepManualPropertyEntry Step = "manual_property_entry"
	StepCommitting          Step = "committing"
	StepDone                Step = "done"
)

// PendingStatus tracks one matched registry record through the flow.
type PendingStatus string

const (
	PendingUnverified PendingStatus = "unverified"
	PendingVerified   PendingStatus = "verified"
	PendingDismissed  PendingStatus = "dismissed"
)

type PendingProperty struct {
	Record registryModels.PropertyRecord `json:"record"`
	Status PendingStatus                 `json:"status"`
}

// State is the full wizard position. Index is meaningful only in
// StepVerifyingProperty and points into Pending.
type State struct {
	Step       Step                       `json:"step"`
	Index      int                        `json:"index"`
	Config     assemblyModels.Config      `json:"config"`
	Pending    []PendingProperty          `json:"pending"`
	Entries    []models.RegistrationEntry `json:"entries"`
	Contact    models.ContactInfo         `json:"contact"`
	AttendeeID string                     `json:"attendee_id,omitempty"`
}

// New returns the initial state.
func New() State {
	return State{Step: StepAwaitingDocument}
}

// Event drives a transition.
type Event interface {
	eventName() string
}

// DocumentResolved carries the resolver's pending records and the assembly
// configuration that decides whether contact info is collected.
type DocumentResolved struct {
	Pending []registryModels.PropertyRecord
	Config  assemblyModels.Config
}

type ContactSubmitted struct {
	Contact models.ContactInfo
}

// PropertyVerified confirms the property at the current index.
type PropertyVerified struct {
	Role       registryModels.Role
	Attachment *models.Attachment
}

type FinishChosen struct{}

type AddAnotherChosen struct{}

// ManualSubmitted adds a property with no registry record. Token is a unique
// id generated by the caller.
type ManualSubmitted struct {
	Token       string
	Group       string
	Property    string
	Coefficient float64
	Role        registryModels.Role
	Attachment  *models.Attachment
}

// EntryRemoved drops a confirmed entry by its property key.
type EntryRemoved struct {
	Key string
}

// Committed records the attendee created from the entries.
type Committed struct {
	AttendeeID string
}

func (DocumentResolved) eventName() string { return "document_resolved" }
func (ContactSubmitted) eventName() string { return "contact_submitted" }
func (PropertyVerified) eventName() string { return "property_verified" }
func (FinishChosen) eventName() string     { return "finish_chosen" }
func (AddAnotherChosen) eventName() string { return "add_another_chosen" }
func (ManualSubmitted) eventName() string  { return "manual_submitted" }
func (EntryRemoved) eventName() string     { return "entry_removed" }
func (Committed) eventName() string        { return "committed" }

// StepAfterDocument is the decision table for the first step after a
// document resolves:
//
//	pending >= 2: all auto-verified; contact info if required, else addition/finish
//	pending == 1: contact info if required, else verify property 0
//	pending == 0: contact info if required, else addition/finish
func StepAfterDocument(pendingCount int, requiresContact bool) Step {
	switch {
	case requiresContact:
		return StepAwaitingContactInfo
	case pendingCount == 1:
		return StepVerifyingProperty
	default:
		return StepAdditionOrFinish
	}
}

// AutoVerifies reports whether the pending set is confirmed without visiting
// the verification step.
func AutoVerifies(pendingCount int) bool {
	return pendingCount >= 2
}

// Transition applies ev to s. On error the returned state is s unchanged.
func Transition(s State, ev Event) (State, error) {
	next := s.clone()
	var err error
	switch e := ev.(type) {
	case DocumentResolved:
		err = next.onDocumentResolved(e)
	case ContactSubmitted:
		err = next.onContactSubmitted(e)
	case PropertyVerified:
		err = next.onPropertyVerified(e)
	case FinishChosen:
		err = next.onFinishChosen()
	case AddAnotherChosen:
		err = next.require(StepAdditionOrFinish, ev)
		if err == nil {
			next.Step = StepManualPropertyEntry
		}
	case ManualSubmitted:
		err = next.onManualSubmitted(e)
	case EntryRemoved:
		err = next.onEntryRemoved(e)
	case Committed:
		err = next.require(StepCommitting, ev)
		if err == nil {
			if e.AttendeeID == "" {
				err = dErrors.New(dErrors.CodeValidation, "attendee id is required")
			} else {
				next.Step = StepDone
				next.AttendeeID = e.AttendeeID
			}
		}
	default:
		err = dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown wizard event %T", ev))
	}
	if err != nil {
		return s, err
	}
	return next, nil
}

func (s *State) onDocumentResolved(e DocumentResolved) error {
	if err := s.require(StepAwaitingDocument, e); err != nil {
		return err
	}
	s.Config = e.Config
	s.Pending = make([]PendingProperty, 0, len(e.Pending))
	for _, rec := range e.Pending {
		s.Pending = append(s.Pending, PendingProperty{Record: rec, Status: PendingUnverified})
	}
	if AutoVerifies(len(s.Pending)) {
		for i := range s.Pending {
			s.Pending[i].Status = PendingVerified
			s.Entries = append(s.Entries, identified(s.Pending[i].Record, registryModels.RoleOwner, nil))
		}
	}
	s.Step = StepAfterDocument(len(s.Pending), e.Config.RequiresContactInfo())
	s.Index = 0
	return nil
}

func (s *State) onContactSubmitted(e ContactSubmitted) error {
	if err := s.require(StepAwaitingContactInfo, e); err != nil {
		return err
	}
	if err := e.Contact.Validate(s.Config); err != nil {
		return err
	}
	s.Contact = e.Contact.Normalize()
	s.advance()
	return nil
}

func (s *State) onPropertyVerified(e PropertyVerified) error {
	if err := s.require(StepVerifyingProperty, e); err != nil {
		return err
	}
	if !e.Role.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "role is required")
	}
	if s.Index < 0 || s.Index >= len(s.Pending) {
		return dErrors.New(dErrors.CodeInvalidState, "no property awaiting verification")
	}
	attachment := e.Attachment
	if attachment.IsEmpty() {
		attachment = nil
	}
	s.Pending[s.Index].Status = PendingVerified
	s.Entries = append(s.Entries, identified(s.Pending[s.Index].Record, e.Role, attachment))
	s.advance()
	return nil
}

func (s *State) onFinishChosen() error {
	if err := s.require(StepAdditionOrFinish, FinishChosen{}); err != nil {
		return err
	}
	if len(s.Entries) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one property is required to finish")
	}
	s.Step = StepCommitting
	return nil
}

// onManualSubmitted goes straight to committing: one manual addition per
// decision point.
func (s *State) onManualSubmitted(e ManualSubmitted) error {
	if err := s.require(StepManualPropertyEntry, e); err != nil {
		return err
	}
	group := strings.TrimSpace(e.Group)
	property := strings.TrimSpace(e.Property)
	if property == "" {
		return dErrors.New(dErrors.CodeValidation, "property description is required")
	}
	if !e.Role.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "role is required")
	}
	if e.Coefficient < 0 {
		return dErrors.New(dErrors.CodeValidation, "coefficient must be non-negative")
	}
	if strings.TrimSpace(e.Token) == "" {
		return dErrors.New(dErrors.CodeValidation, "manual property token is required")
	}
	attachment := e.Attachment
	if attachment.IsEmpty() {
		attachment = nil
	}
	description := strings.TrimSpace(group + " " + property)
	s.Entries = append(s.Entries, models.RegistrationEntry{
		Ref:         models.Manual(e.Token, description),
		Role:        e.Role,
		Attachment:  attachment,
		Group:       group,
		Property:    property,
		Coefficient: e.Coefficient,
		IsManual:    true,
	})
	s.Step = StepCommitting
	return nil
}

// onEntryRemoved drops an entry before committing. A removed registry-backed
// property is dismissed rather than queued for verification again, and the
// step is re-derived from what is still outstanding.
func (s *State) onEntryRemoved(e EntryRemoved) error {
	switch s.Step {
	case StepCommitting, StepDone, StepAwaitingDocument:
		return dErrors.New(dErrors.CodeInvalidState, "entries can no longer be changed")
	}
	idx := slices.IndexFunc(s.Entries, func(entry models.RegistrationEntry) bool {
		return entry.Ref.Key() == e.Key
	})
	if idx < 0 {
		return dErrors.New(dErrors.CodeNotFound, "entry not found")
	}
	removed := s.Entries[idx]
	s.Entries = slices.Delete(s.Entries, idx, idx+1)
	if !removed.Ref.IsManual() {
		for i := range s.Pending {
			if s.Pending[i].Record.ID == removed.Ref.ID {
				s.Pending[i].Status = PendingDismissed
			}
		}
	}
	if s.Step == StepVerifyingProperty || s.Step == StepAdditionOrFinish {
		s.advance()
	}
	return nil
}

// advance moves to the first unverified pending property, or to the
// addition/finish choice when none is left.
func (s *State) advance() {
	if i := s.Outstanding(); i >= 0 {
		s.Step = StepVerifyingProperty
		s.Index = i
		return
	}
	s.Step = StepAdditionOrFinish
	s.Index = 0
}

// Outstanding is the index of the first unverified pending property, or -1.
func (s State) Outstanding() int {
	for i, p := range s.Pending {
		if p.Status == PendingUnverified {
			return i
		}
	}
	return -1
}

// Current returns the property awaiting verification, if any.
func (s State) Current() (registryModels.PropertyRecord, bool) {
	if s.Step != StepVerifyingProperty || s.Index < 0 || s.Index >= len(s.Pending) {
		return registryModels.PropertyRecord{}, false
	}
	return s.Pending[s.Index].Record, true
}

func (s *State) require(step Step, ev Event) error {
	if s.Step != step {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("%s is not allowed while %s", ev.eventName(), s.Step))
	}
	return nil
}

func (s State) clone() State {
	s.Pending = slices.Clone(s.Pending)
	s.Entries = slices.Clone(s.Entries)
	return s
}

func identified(rec registryModels.PropertyRecord, role registryModels.Role, attachment *models.Attachment) models.RegistrationEntry {
	entry := models.EntryFromRecord(rec, role, attachment)
	entry.IsIdentified = true
	return entry
}
