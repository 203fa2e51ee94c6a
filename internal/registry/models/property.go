package models

import (
	"fmt"
	"strings"
	"time"

	dErrors "asamblea/pkg/domain-errors"
	"asamblea/pkg/platform/sentinel"
	pstrings "asamblea/pkg/platform/strings"
)

// ReservedIDPrefix starts the keys of manually described properties, so no
// registry record may use it.
const ReservedIDPrefix = "manual:"

// Role is the capacity in which an attendee represents a property.
type Role string

const (
	RoleOwner Role = "owner"
	RoleProxy Role = "proxy"
)

func (r Role) IsValid() bool {
	return r == RoleOwner || r == RoleProxy
}

// PropertyRecord is one voting share in an entity's registry.
//
// Invariants:
//   - ID is non-empty and unique within its registry list
//   - ID does not start with ReservedIDPrefix and contains no '.' or '$',
//     since it doubles as an answer key on questions
//   - Coefficient and Votes are non-negative
//   - A registered record is never soft-deleted
type PropertyRecord struct {
	ID            string  `json:"id"`
	OwnerDocument string  `json:"owner_document"`
	Group         string  `json:"group"`
	Property      string  `json:"property"`
	Coefficient   float64 `json:"coefficient"`
	Votes         float64 `json:"votes"`

	RegisteredInAssembly bool `json:"registered_in_assembly"`
	IsDeleted            bool `json:"is_deleted"`
	VoteBlocked          bool `json:"vote_blocked"`

	Registration *RegistrationStamp `json:"registration,omitempty"`
}

// RegistrationStamp records who claimed the record and how.
type RegistrationStamp struct {
	Document     string    `json:"document"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Role         Role      `json:"role"`
	PowerURL     string    `json:"power_url,omitempty"`
	AttendeeID   string    `json:"attendee_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// OwnedBy reports whether document matches the record's owner document.
func (p PropertyRecord) OwnedBy(document string) bool {
	return pstrings.SameDocument(p.OwnerDocument, document)
}

// Validate checks the record invariants used on import.
func (p PropertyRecord) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return dErrors.New(dErrors.CodeValidation, "property id is required")
	}
	if strings.HasPrefix(p.ID, ReservedIDPrefix) {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("property %s: id uses the reserved %q prefix", p.ID, ReservedIDPrefix))
	}
	if strings.ContainsAny(p.ID, ".$") {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("property %s: id cannot contain '.' or '$'", p.ID))
	}
	if strings.TrimSpace(p.OwnerDocument) == "" {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("property %s: owner document is required", p.ID))
	}
	if p.Coefficient < 0 {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("property %s: coefficient must be non-negative", p.ID))
	}
	if p.Votes < 0 {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("property %s: votes must be non-negative", p.ID))
	}
	return nil
}

// CanSoftDelete rejects deletion of records already claimed by an attendee.
func (p PropertyRecord) CanSoftDelete() error {
	if p.RegisteredInAssembly {
		return dErrors.New(dErrors.CodeInvalidState, "property is registered and cannot be deleted")
	}
	return nil
}

// CanStamp reports whether attendeeID may claim the record: it must not be
// deleted, and a claimed record only accepts a re-stamp by the same attendee.
// Failures wrap sentinel.ErrInvalidState and sentinel.ErrConflict.
func (p PropertyRecord) CanStamp(attendeeID string) error {
	if p.IsDeleted {
		return fmt.Errorf("property %s was removed from the registry: %w", p.ID, sentinel.ErrInvalidState)
	}
	if p.RegisteredInAssembly && (p.Registration == nil || p.Registration.AttendeeID != attendeeID) {
		return fmt.Errorf("property %s is already registered by another attendee: %w", p.ID, sentinel.ErrConflict)
	}
	return nil
}

// Patch is a partial, field-scoped update of one record. Nil fields are left
// untouched.
type Patch struct {
	RegisteredInAssembly *bool
	IsDeleted            *bool
	VoteBlocked          *bool
	Registration         *RegistrationStamp
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.RegisteredInAssembly == nil && p.IsDeleted == nil && p.VoteBlocked == nil && p.Registration == nil
}

// Apply returns a copy of rec with the patch applied.
func (p Patch) Apply(rec PropertyRecord) PropertyRecord {
	if p.RegisteredInAssembly != nil {
		rec.RegisteredInAssembly = *p.RegisteredInAssembly
	}
	if p.IsDeleted != nil {
		rec.IsDeleted = *p.IsDeleted
	}
	if p.VoteBlocked != nil {
		rec.VoteBlocked = *p.VoteBlocked
	}
	if p.Registration != nil {
		stamp := *p.Registration
		rec.Registration = &stamp
	}
	return rec
}

// StampPatch marks a record as claimed by an attendee.
func StampPatch(stamp RegistrationStamp) Patch {
	registered := true
	return Patch{RegisteredInAssembly: &registered, Registration: &stamp}
}

// Registry is a snapshot of one list keyed by property id.
type Registry map[string]PropertyRecord

// Quorum summarizes how much of a registry has been claimed.
type Quorum struct {
	TotalProperties       int     `json:"total_properties"`
	RegisteredProperties  int     `json:"registered_properties"`
	TotalCoefficient      float64 `json:"total_coefficient"`
	RegisteredCoefficient float64 `json:"registered_coefficient"`
}

// CountRatio is registered over total properties, 0 for an empty registry.
func (q Quorum) CountRatio() float64 {
	if q.TotalProperties == 0 {
		return 0
	}
	return float64(q.RegisteredProperties) / float64(q.TotalProperties)
}

// CoefficientRatio is the coefficient-weighted ratio, 0 when nothing is weighted.
func (q Quorum) CoefficientRatio() float64 {
	if q.TotalCoefficient == 0 {
		return 0
	}
	return q.RegisteredCoefficient / q.TotalCoefficient
}

// ComputeQuorum ignores soft-deleted records.
func ComputeQuorum(reg Registry) Quorum {
	var q Quorum
	for _, rec := range reg {
		if rec.IsDeleted {
			continue
		}
		q.TotalProperties++
		q.TotalCoefficient += rec.Coefficient
		if rec.RegisteredInAssembly {
			q.RegisteredProperties++
			q.RegisteredCoefficient += rec.Coefficient
		}
	}
	return q
}
