package changefeed

import (
	"context"
	"sync"

	"asamblea/pkg/requestcontext"
)

const subscriberBuffer = 32

type subscriber struct {
	ch   chan Change
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Memory is an in-process Feed. Slow subscribers lose changes instead of
// blocking publishers.
type Memory struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]*subscriber
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[string]map[uint64]*subscriber)}
}

func (m *Memory) Publish(ctx context.Context, change Change) error {
	if change.At.IsZero() {
		change.At = requestcontext.Now(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sub := range m.subs[topic(change.EntityType, change.EntityID)] {
		select {
		case sub.ch <- change:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, entityType EntityType, entityID string, fn func(Change)) (func(), error) {
	key := topic(entityType, entityID)
	sub := &subscriber{ch: make(chan Change, subscriberBuffer)}

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	if m.subs[key] == nil {
		m.subs[key] = make(map[uint64]*subscriber)
	}
	m.subs[key][id] = sub
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if subs, ok := m.subs[key]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(m.subs, key)
			}
		}
		m.mu.Unlock()
		sub.close()
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case change, ok := <-sub.ch:
				if !ok {
					return
				}
				fn(change)
			}
		}
	}()

	return cancel, nil
}

// SubscriberCount is the number of live subscriptions for an entity.
func (m *Memory) SubscriberCount(entityType EntityType, entityID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs[topic(entityType, entityID)])
}
