package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	pstrings "asamblea/pkg/platform/strings"
)

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance for the
	// assembly minutes: registrations, ballots, lifecycle changes.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers administrative locks and failed claims.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It is
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory `json:"category"`
	Timestamp  time.Time     `json:"timestamp"`
	AssemblyID string        `json:"assembly_id,omitempty"`
	AttendeeID string        `json:"attendee_id,omitempty"`
	Subject    string        `json:"subject,omitempty"`
	Action     string        `json:"action"`
	Reason     string        `json:"reason,omitempty"`
	RequestID  string        `json:"request_id,omitempty"`
	// ActorID tracks who performed the action when it was an administrator.
	ActorID string `json:"actor_id,omitempty"`
	// DocumentHash is a SHA-256 of the normalized identity document so the
	// trail can be correlated without storing the raw document.
	DocumentHash string `json:"document_hash,omitempty"`
}

type AuditEvent string

const (
	// Registration events
	EventAttendeeRegistered AuditEvent = "attendee_registered"
	EventPropertyStamped    AuditEvent = "property_stamped"
	EventStampFailed        AuditEvent = "property_stamp_failed"
	EventResolveRejected    AuditEvent = "registration_resolve_rejected"

	// Registry events
	EventRegistryImported    AuditEvent = "registry_imported"
	EventPropertyDeleted     AuditEvent = "property_deleted"
	EventPropertyVoteBlocked AuditEvent = "property_vote_blocked"

	// Assembly events
	EventAssemblyCreated       AuditEvent = "assembly_created"
	EventAssemblyStatusChanged AuditEvent = "assembly_status_changed"
	EventVoterBlocked          AuditEvent = "assembly_voter_blocked"

	// Voting events
	EventQuestionCreated       AuditEvent = "question_created"
	EventQuestionStatusChanged AuditEvent = "question_status_changed"
	EventBallotSubmitted       AuditEvent = "ballot_submitted"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventAttendeeRegistered:    CategoryCompliance,
	EventAssemblyStatusChanged: CategoryCompliance,
	EventQuestionStatusChanged: CategoryCompliance,
	EventBallotSubmitted:       CategoryCompliance,
	EventRegistryImported:      CategoryCompliance,
	EventPropertyDeleted:       CategoryCompliance,

	EventStampFailed:         CategorySecurity,
	EventResolveRejected:     CategorySecurity,
	EventPropertyVoteBlocked: CategorySecurity,
	EventVoterBlocked:        CategorySecurity,

	EventPropertyStamped: CategoryOperations,
	EventAssemblyCreated: CategoryOperations,
	EventQuestionCreated: CategoryOperations,
}

// CategoryFor returns the category of an action, defaulting to operations.
func CategoryFor(action string) EventCategory {
	if c, ok := eventCategories[AuditEvent(action)]; ok {
		return c
	}
	return CategoryOperations
}

// HashDocument returns the hex SHA-256 of the normalized document.
func HashDocument(document string) string {
	normalized := pstrings.NormalizeDocument(document)
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Lister is implemented by stores that can read events back.
type Lister interface {
	ListByAssembly(ctx context.Context, assemblyID string) ([]Event, error)
}
