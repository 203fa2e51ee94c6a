package models

import (
	"encoding/json"
	"fmt"
	"strings"

	registryModels "asamblea/internal/registry/models"
)

// ManualKeyPrefix marks the storage key of a property an attendee described
// by hand. It is an encoding detail; code branches on PropertyRef.Kind.
const ManualKeyPrefix = registryModels.ReservedIDPrefix

// RefKind discriminates PropertyRef.
type RefKind string

const (
	RefRegistered RefKind = "registered"
	RefManual     RefKind = "manual"
)

// PropertyRef points either at a registry record or at a property the
// attendee described manually, which has no backing record.
type PropertyRef struct {
	Kind RefKind `json:"kind"`
	// ID is the registry record id for RefRegistered, or a generated token for
	// RefManual.
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
}

func Registered(id string) PropertyRef {
	return PropertyRef{Kind: RefRegistered, ID: id}
}

func Manual(token, description string) PropertyRef {
	return PropertyRef{Kind: RefManual, ID: token, Description: strings.TrimSpace(description)}
}

func (r PropertyRef) IsManual() bool {
	return r.Kind == RefManual
}

// Key is the identifier answers and blocked-voter lists use.
func (r PropertyRef) Key() string {
	if r.IsManual() {
		return ManualKeyPrefix + r.ID
	}
	return r.ID
}

func (r PropertyRef) String() string {
	return r.Key()
}

// ParseKey decodes a storage key back into a reference. Descriptions are not
// part of the key.
func ParseKey(key string) PropertyRef {
	if token, ok := strings.CutPrefix(key, ManualKeyPrefix); ok {
		return PropertyRef{Kind: RefManual, ID: token}
	}
	return Registered(key)
}

func (r PropertyRef) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("property reference id is required")
	}
	switch r.Kind {
	case RefRegistered:
		if strings.HasPrefix(r.ID, ManualKeyPrefix) {
			return fmt.Errorf("registered property id %q uses the reserved manual prefix", r.ID)
		}
	case RefManual:
	default:
		return fmt.Errorf("unknown property reference kind %q", r.Kind)
	}
	return nil
}

// UnmarshalJSON accepts both the tagged object and a bare key string.
func (r *PropertyRef) UnmarshalJSON(data []byte) error {
	var key string
	if err := json.Unmarshal(data, &key); err == nil {
		*r = ParseKey(key)
		return nil
	}
	type plain PropertyRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = PropertyRef(p)
	return nil
}
