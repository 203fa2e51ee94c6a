package blobstore

import (
	"context"
	"slices"
	"sync"

	"asamblea/pkg/platform/sentinel"
)

type Memory struct {
	mu      sync.RWMutex
	baseURL string
	blobs   map[string]Blob
}

func NewMemory(baseURL string) *Memory {
	return &Memory{baseURL: baseURL, blobs: make(map[string]Blob)}
}

func (m *Memory) Put(_ context.Context, key string, blob Blob) (string, error) {
	key, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	blob.Data = slices.Clone(blob.Data)
	m.mu.Lock()
	m.blobs[key] = blob
	m.mu.Unlock()
	return urlFor(m.baseURL, key), nil
}

func (m *Memory) Get(_ context.Context, key string) (Blob, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Blob{}, sentinel.ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[key]
	if !ok {
		return Blob{}, sentinel.ErrNotFound
	}
	blob.Data = slices.Clone(blob.Data)
	return blob, nil
}

// Len is the number of stored blobs.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
