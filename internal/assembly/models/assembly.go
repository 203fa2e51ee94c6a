package models

import (
	"fmt"
	"strings"
	"time"

	dErrors "asamblea/pkg/domain-errors"
	pstrings "asamblea/pkg/platform/strings"
)

// Status is the assembly lifecycle position.
type Status string

const (
	StatusCreate              Status = "create"
	StatusStarted             Status = "started"
	StatusRegistriesFinalized Status = "registries_finalized"
	StatusFinished            Status = "finished"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusCreate, StatusStarted, StatusRegistriesFinalized, StatusFinished:
		return true
	}
	return false
}

// allowedTransitions is the lifecycle graph. registries_finalized may reopen
// to started.
var allowedTransitions = map[Status][]Status{
	StatusCreate:              {StatusStarted},
	StatusStarted:             {StatusRegistriesFinalized},
	StatusRegistriesFinalized: {StatusStarted, StatusFinished},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AcceptsRegistrations is true only while the assembly is started.
func (s Status) AcceptsRegistrations() bool {
	return s == StatusStarted
}

// VotingMode selects how an attendee with several properties casts a ballot.
type VotingMode string

const (
	VotingModeBlock      VotingMode = "block"
	VotingModeIndividual VotingMode = "individual"
)

func (m VotingMode) IsValid() bool {
	return m == VotingModeBlock || m == VotingModeIndividual
}

// AccessMethod controls what happens when a document matches no property.
type AccessMethod string

const (
	AccessDatabaseOnly     AccessMethod = "database_only"
	AccessDatabaseOrManual AccessMethod = "database_or_manual"
)

// Config is the organizer-controlled registration and voting configuration.
type Config struct {
	RequireFullName bool         `json:"require_full_name"`
	RequireEmail    bool         `json:"require_email"`
	RequirePhone    bool         `json:"require_phone"`
	VotingMode      *VotingMode  `json:"voting_mode,omitempty"`
	AccessMethod    AccessMethod `json:"access_method,omitempty"`
}

// RequiresContactInfo is true when any contact field is mandatory.
func (c Config) RequiresContactInfo() bool {
	return c.RequireFullName || c.RequireEmail || c.RequirePhone
}

// RequiresDatabaseMatch is the default when no access method is set.
func (c Config) RequiresDatabaseMatch() bool {
	return c.AccessMethod != AccessDatabaseOrManual
}

// FixedVotingMode returns the organizer-imposed mode, if any.
func (c Config) FixedVotingMode() (VotingMode, bool) {
	if c.VotingMode == nil {
		return "", false
	}
	return *c.VotingMode, true
}

func (c Config) Validate() error {
	if c.VotingMode != nil && !c.VotingMode.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid voting mode %q", *c.VotingMode))
	}
	switch c.AccessMethod {
	case "", AccessDatabaseOnly, AccessDatabaseOrManual:
	default:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid access method %q", c.AccessMethod))
	}
	return nil
}

// Assembly is one meeting held over an entity's property registry.
//
// Invariants:
//   - EntityID names the registry list the assembly draws attendees from
//   - BlockedVoters holds property keys, deduplicated, scoped to this assembly
type Assembly struct {
	ID            string    `json:"id"`
	EntityID      string    `json:"entity_id"`
	Name          string    `json:"name"`
	Status        Status    `json:"status"`
	Config        Config    `json:"config"`
	BlockedVoters []string  `json:"blocked_voters"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewAssembly validates inputs and returns an assembly in status create.
func NewAssembly(id, entityID, name string, cfg Config, now time.Time) (*Assembly, error) {
	name = strings.TrimSpace(name)
	entityID = strings.TrimSpace(entityID)
	if id == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "assembly id is required")
	}
	if entityID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "entity id is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "assembly name is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Assembly{
		ID:            id,
		EntityID:      entityID,
		Name:          name,
		Status:        StatusCreate,
		Config:        cfg,
		BlockedVoters: []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// IsVoterBlocked reports whether a property key is locked for this assembly.
func (a *Assembly) IsVoterBlocked(propertyKey string) bool {
	return pstrings.Contains(a.BlockedVoters, propertyKey)
}

// TransitionTo moves the assembly along its lifecycle.
func (a *Assembly) TransitionTo(next Status, now time.Time) error {
	if !next.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("invalid assembly status %q", next))
	}
	if !a.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState,
			fmt.Sprintf("assembly cannot move from %s to %s", a.Status, next))
	}
	a.Status = next
	a.UpdatedAt = now
	return nil
}

// SetVoterBlocked adds or removes a property key from the blocked list.
// Reports whether the list changed.
func (a *Assembly) SetVoterBlocked(propertyKey string, blocked bool, now time.Time) bool {
	propertyKey = strings.TrimSpace(propertyKey)
	if propertyKey == "" {
		return false
	}
	has := a.IsVoterBlocked(propertyKey)
	switch {
	case blocked && !has:
		a.BlockedVoters = pstrings.DedupeAndTrim(append(a.BlockedVoters, propertyKey))
	case !blocked && has:
		a.BlockedVoters = pstrings.Remove(a.BlockedVoters, propertyKey)
	default:
		return false
	}
	a.UpdatedAt = now
	return true
}
