// Package resolver decides what a submitted identity document means for an
// assembly: an existing attendee, a set of unclaimed properties to verify, a
// manual registration, or one of the rejection kinds.
//
// Resolve is pure. Callers load the attendee, assembly and registry through
// their stores on every call and pass the snapshots in.
package resolver

import (
	"sort"
	"strings"

	assemblyModels "asamblea/internal/assembly/models"
	registryModels "asamblea/internal/registry/models"
	"asamblea/internal/registration/models"
	dErrors "asamblea/pkg/domain-errors"
)

// Kind discriminates Outcome.
type Kind string

const (
	KindAlreadyRegistered    Kind = "already_registered"
	KindVerificationRequired Kind = "verification_required"
	KindManualEntryRequired  Kind = "manual_entry_required"
)

// Outcome is the successful result of Resolve. Rejections (validation, not
// started, registration closed, not found) are returned as coded errors.
type Outcome struct {
	Kind Kind
	// Attendee is set for KindAlreadyRegistered.
	Attendee *models.Attendee
	// Pending holds matched records not yet registered, ordered by id.
	Pending []registryModels.PropertyRecord
	// MatchedCount counts every non-deleted record owned by the document,
	// registered or not.
	MatchedCount int
}

// Resolve applies the eligibility rules in order:
//
//  1. an existing attendee for the document short-circuits everything
//  2. the assembly must be started
//  3. non-deleted records owned by the document are matched
//  4. no match is NotFound unless the assembly allows manual entry
//  5. otherwise the unregistered matches are pending verification
func Resolve(
	document string,
	asm *assemblyModels.Assembly,
	existing *models.Attendee,
	registry registryModels.Registry,
) (Outcome, error) {
	if strings.TrimSpace(document) == "" {
		return Outcome{}, dErrors.New(dErrors.CodeValidation, "document is required")
	}
	if existing != nil {
		return Outcome{Kind: KindAlreadyRegistered, Attendee: existing}, nil
	}
	if asm == nil {
		return Outcome{}, dErrors.New(dErrors.CodeNotFound, "assembly not found")
	}

	switch asm.Status {
	case assemblyModels.StatusCreate:
		return Outcome{}, dErrors.New(dErrors.CodeNotStarted, "assembly has not started")
	case assemblyModels.StatusRegistriesFinalized, assemblyModels.StatusFinished:
		return Outcome{}, dErrors.New(dErrors.CodeRegistrationClosed, "registration is closed for this assembly")
	}

	matched := Match(document, registry)
	if len(matched) == 0 {
		if asm.Config.RequiresDatabaseMatch() {
			return Outcome{}, dErrors.New(dErrors.CodeNotFound, "no property is registered under this document")
		}
		return Outcome{Kind: KindManualEntryRequired}, nil
	}

	pending := make([]registryModels.PropertyRecord, 0, len(matched))
	for _, rec := range matched {
		if !rec.RegisteredInAssembly {
			pending = append(pending, rec)
		}
	}
	return Outcome{
		Kind:         KindVerificationRequired,
		Pending:      pending,
		MatchedCount: len(matched),
	}, nil
}

// Match returns the non-deleted records owned by document, ordered by id.
func Match(document string, registry registryModels.Registry) []registryModels.PropertyRecord {
	matched := make([]registryModels.PropertyRecord, 0)
	for _, rec := range registry {
		if rec.IsDeleted || !rec.OwnedBy(document) {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}
