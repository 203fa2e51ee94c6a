// Package session stores the per-attendee session: the registration wizard
// position while registering, then the committed attendee id and the voting
// mode preference remembered across questions.
package session

import (
	"time"

	assemblyModels "asamblea/internal/assembly/models"
	"asamblea/internal/registration/wizard"
)

type Session struct {
	ID         string                    `json:"id"`
	AssemblyID string                    `json:"assembly_id"`
	Document   string                    `json:"document"`
	Wizard     wizard.State              `json:"wizard"`
	AttendeeID string                    `json:"attendee_id,omitempty"`
	VotingMode assemblyModels.VotingMode `json:"voting_mode,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
	ExpiresAt  time.Time                 `json:"expires_at"`
}

// IsRegistered reports whether the session is bound to a committed attendee.
func (s *Session) IsRegistered() bool {
	return s.AttendeeID != ""
}

func (s *Session) IsExpired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
