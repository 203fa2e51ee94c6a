package store

import (
	"context"
	"slices"
	"sync"

	"asamblea/internal/assembly/models"
	"asamblea/pkg/platform/sentinel"
)

// InMemoryAssemblyStore keeps assemblies in a map guarded by a RWMutex.
// Values are copied in and out so callers never share the stored struct.
type InMemoryAssemblyStore struct {
	mu         sync.RWMutex
	assemblies map[string]models.Assembly
}

func NewInMemory() *InMemoryAssemblyStore {
	return &InMemoryAssemblyStore{assemblies: make(map[string]models.Assembly)}
}

func (s *InMemoryAssemblyStore) Create(_ context.Context, asm *models.Assembly) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assemblies[asm.ID]; ok {
		return sentinel.ErrConflict
	}
	s.assemblies[asm.ID] = clone(*asm)
	return nil
}

func (s *InMemoryAssemblyStore) FindByID(_ context.Context, id string) (*models.Assembly, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	asm, ok := s.assemblies[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := clone(asm)
	return &out, nil
}

// Execute runs mutate against a copy under the write lock and stores the
// result only when mutate succeeds.
func (s *InMemoryAssemblyStore) Execute(_ context.Context, id string, mutate func(*models.Assembly) error) (*models.Assembly, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.assemblies[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := clone(current)
	if err := mutate(&working); err != nil {
		return nil, err
	}
	s.assemblies[id] = clone(working)
	return &working, nil
}

func clone(a models.Assembly) models.Assembly {
	a.BlockedVoters = slices.Clone(a.BlockedVoters)
	if a.Config.VotingMode != nil {
		mode := *a.Config.VotingMode
		a.Config.VotingMode = &mode
	}
	return a
}
