// Package rights computes the properties an attendee may currently vote
// through. The result depends on registry flags and the assembly's blocked
// list, both of which administrators change while voting is live, so
// callers recompute it from fresh reads every time.
package rights

import (
	assemblyModels "asamblea/internal/assembly/models"
	"asamblea/internal/registration/models"
	registryModels "asamblea/internal/registry/models"
)

// ActiveProperties returns, in entry order, the attendee's registry-backed
// properties that are not soft-deleted plus the manual entries materialized
// from the registration, minus anything vote-blocked in the registry or
// blocked for this assembly. Manual properties carry their storage key as ID.
func ActiveProperties(
	attendee *models.Attendee,
	registry registryModels.Registry,
	asm *assemblyModels.Assembly,
) []registryModels.PropertyRecord {
	if attendee == nil {
		return nil
	}
	active := make([]registryModels.PropertyRecord, 0, len(attendee.Entries))
	seen := make(map[string]struct{}, len(attendee.Entries))
	for _, entry := range attendee.Entries {
		key := entry.Ref.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		var rec registryModels.PropertyRecord
		if entry.Ref.IsManual() {
			rec = materialize(entry)
		} else {
			found, ok := registry[entry.Ref.ID]
			if !ok || found.IsDeleted {
				continue
			}
			rec = found
		}
		if rec.VoteBlocked || (asm != nil && asm.IsVoterBlocked(key)) {
			continue
		}
		active = append(active, rec)
	}
	return active
}

// Keys lists the property keys of records.
func Keys(records []registryModels.PropertyRecord) []string {
	keys := make([]string, 0, len(records))
	for _, r := range records {
		keys = append(keys, r.ID)
	}
	return keys
}

func materialize(entry models.RegistrationEntry) registryModels.PropertyRecord {
	return registryModels.PropertyRecord{
		ID:                   entry.Ref.Key(),
		Group:                entry.Group,
		Property:             entry.Property,
		Coefficient:          entry.Coefficient,
		Votes:                entry.Votes,
		RegisteredInAssembly: true,
	}
}
