package models

import (
	"net/mail"
	"strings"
	"time"

	assemblyModels "asamblea/internal/assembly/models"
	registryModels "asamblea/internal/registry/models"
	dErrors "asamblea/pkg/domain-errors"
)

// ContactInfo is the identity detail an assembly may require.
type ContactInfo struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

func (c ContactInfo) Normalize() ContactInfo {
	return ContactInfo{
		FirstName: strings.TrimSpace(c.FirstName),
		LastName:  strings.TrimSpace(c.LastName),
		Email:     strings.ToLower(strings.TrimSpace(c.Email)),
		Phone:     strings.TrimSpace(c.Phone),
	}
}

// Validate checks the fields cfg marks as required. Optional fields are
// checked for shape only when present.
func (c ContactInfo) Validate(cfg assemblyModels.Config) error {
	c = c.Normalize()
	if cfg.RequireFullName && (c.FirstName == "" || c.LastName == "") {
		return dErrors.New(dErrors.CodeValidation, "first and last name are required")
	}
	if cfg.RequireEmail && c.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return dErrors.New(dErrors.CodeValidation, "email is invalid")
		}
	}
	if cfg.RequirePhone && c.Phone == "" {
		return dErrors.New(dErrors.CodeValidation, "phone is required")
	}
	return nil
}

// Attachment is an authorization file (power of attorney) held until commit.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

func (a *Attachment) IsEmpty() bool {
	return a == nil || len(a.Data) == 0
}

// RegistrationEntry is one property the attendee represents, with a snapshot
// of the registry data at the time of registration.
type RegistrationEntry struct {
	Ref          PropertyRef         `json:"ref"`
	Role         registryModels.Role `json:"role"`
	Attachment   *Attachment         `json:"attachment,omitempty"`
	PowerURL     string              `json:"power_url,omitempty"`
	Group        string              `json:"group"`
	Property     string              `json:"property"`
	Coefficient  float64             `json:"coefficient"`
	Votes        float64             `json:"votes"`
	IsIdentified bool                `json:"is_identified"`
	IsManual     bool                `json:"is_manual"`
}

// EntryFromRecord snapshots a registry record.
func EntryFromRecord(rec registryModels.PropertyRecord, role registryModels.Role, attachment *Attachment) RegistrationEntry {
	return RegistrationEntry{
		Ref:         Registered(rec.ID),
		Role:        role,
		Attachment:  attachment,
		Group:       rec.Group,
		Property:    rec.Property,
		Coefficient: rec.Coefficient,
		Votes:       rec.Votes,
	}
}

// Attendee is a committed registration: one per (document, assembly).
type Attendee struct {
	ID         string              `json:"id"`
	AssemblyID string              `json:"assembly_id"`
	Document   string              `json:"document"`
	Contact    ContactInfo         `json:"contact"`
	Entries    []RegistrationEntry `json:"entries"`
	CreatedAt  time.Time           `json:"created_at"`
}

// References lists the attendee's property references in entry order.
func (a *Attendee) References() []PropertyRef {
	refs := make([]PropertyRef, 0, len(a.Entries))
	for _, e := range a.Entries {
		refs = append(refs, e.Ref)
	}
	return refs
}
