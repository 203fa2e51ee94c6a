package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"asamblea/pkg/platform/sentinel"
	"asamblea/pkg/requestcontext"
)

// InMemoryStore keeps sessions as encoded snapshots so callers never share
// the nested wizard slices with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string][]byte)}
}

func (s *InMemoryStore) Save(_ context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = raw
	return nil
}

// FindByID returns ErrNotFound for unknown and expired sessions.
func (s *InMemoryStore) FindByID(ctx context.Context, id string) (*Session, error) {
	s.mu.RLock()
	raw, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if sess.IsExpired(requestcontext.Now(ctx)) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return nil, sentinel.ErrNotFound
	}
	return &sess, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
