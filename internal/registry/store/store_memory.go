package store

import (
	"context"
	"sync"

	"asamblea/internal/registry/models"
	"asamblea/pkg/platform/sentinel"
)

// InMemoryRegistryStore holds registry lists keyed by list id then property id.
type InMemoryRegistryStore struct {
	mu    sync.RWMutex
	lists map[string]models.Registry
}

func NewInMemory() *InMemoryRegistryStore {
	return &InMemoryRegistryStore{lists: make(map[string]models.Registry)}
}

// Import inserts records into a list. Any id already present rejects the
// whole batch with ErrConflict.
func (s *InMemoryRegistryStore) Import(_ context.Context, listID string, records []models.PropertyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[listID]
	if list == nil {
		list = make(models.Registry)
	}
	for _, rec := range records {
		if _, ok := list[rec.ID]; ok {
			return sentinel.ErrConflict
		}
	}
	for _, rec := range records {
		list[rec.ID] = copyRecord(rec)
	}
	s.lists[listID] = list
	return nil
}

func (s *InMemoryRegistryStore) List(_ context.Context, listID string) (models.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(models.Registry, len(s.lists[listID]))
	for id, rec := range s.lists[listID] {
		out[id] = copyRecord(rec)
	}
	return out, nil
}

func (s *InMemoryRegistryStore) ListByOwner(_ context.Context, listID, document string) (models.Registry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(models.Registry)
	for id, rec := range s.lists[listID] {
		if rec.OwnedBy(document) {
			out[id] = copyRecord(rec)
		}
	}
	return out, nil
}

func (s *InMemoryRegistryStore) FindByID(_ context.Context, listID, id string) (*models.PropertyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.lists[listID][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := copyRecord(rec)
	return &out, nil
}

func (s *InMemoryRegistryStore) Update(_ context.Context, listID, id string, patch models.Patch) (*models.PropertyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lists[listID][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	updated := patch.Apply(rec)
	s.lists[listID][id] = updated
	out := copyRecord(updated)
	return &out, nil
}

// StampIfUnclaimed claims the record for stamp.AttendeeID. Deleted records
// and records claimed by another attendee are left untouched.
func (s *InMemoryRegistryStore) StampIfUnclaimed(_ context.Context, listID, id string, stamp models.RegistrationStamp) (*models.PropertyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lists[listID][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := rec.CanStamp(stamp.AttendeeID); err != nil {
		return nil, err
	}
	updated := models.StampPatch(stamp).Apply(rec)
	s.lists[listID][id] = updated
	out := copyRecord(updated)
	return &out, nil
}

// SoftDeleteIfUnregistered flags the record deleted unless it is registered.
func (s *InMemoryRegistryStore) SoftDeleteIfUnregistered(_ context.Context, listID, id string) (*models.PropertyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lists[listID][id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if rec.RegisteredInAssembly {
		return nil, sentinel.ErrInvalidState
	}
	rec.IsDeleted = true
	s.lists[listID][id] = rec
	out := copyRecord(rec)
	return &out, nil
}

func copyRecord(rec models.PropertyRecord) models.PropertyRecord {
	if rec.Registration != nil {
		stamp := *rec.Registration
		rec.Registration = &stamp
	}
	return rec
}
