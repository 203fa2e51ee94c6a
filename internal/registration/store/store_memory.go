package store

import (
	"context"
	"slices"
	"sync"

	"asamblea/internal/registration/models"
	"asamblea/pkg/platform/sentinel"
	pstrings "asamblea/pkg/platform/strings"
)

// InMemoryAttendeeStore enforces one attendee per (assembly, normalized
// document) with a secondary index.
type InMemoryAttendeeStore struct {
	mu         sync.RWMutex
	attendees  map[string]models.Attendee
	byDocument map[string]string
}

func NewInMemory() *InMemoryAttendeeStore {
	return &InMemoryAttendeeStore{
		attendees:  make(map[string]models.Attendee),
		byDocument: make(map[string]string),
	}
}

func documentKey(assemblyID, document string) string {
	return assemblyID + "\x00" + pstrings.NormalizeDocument(document)
}

func (s *InMemoryAttendeeStore) Create(_ context.Context, attendee *models.Attendee) error {
	key := documentKey(attendee.AssemblyID, attendee.Document)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byDocument[key]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.attendees[attendee.ID]; ok {
		return sentinel.ErrConflict
	}
	s.attendees[attendee.ID] = copyAttendee(*attendee)
	s.byDocument[key] = attendee.ID
	return nil
}

func (s *InMemoryAttendeeStore) FindByID(_ context.Context, id string) (*models.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attendees[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := copyAttendee(a)
	return &out, nil
}

func (s *InMemoryAttendeeStore) FindByDocument(_ context.Context, assemblyID, document string) (*models.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byDocument[documentKey(assemblyID, document)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := copyAttendee(s.attendees[id])
	return &out, nil
}

func copyAttendee(a models.Attendee) models.Attendee {
	a.Entries = slices.Clone(a.Entries)
	for i := range a.Entries {
		// Attachments are upload input only; they are never persisted.
		a.Entries[i].Attachment = nil
	}
	return a
}
