package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "asamblea/pkg/platform/audit"
	"asamblea/pkg/platform/audit/store/memory"
	"asamblea/pkg/requestcontext"
)

type writeOnlyStore struct{ appended int }

func (s *writeOnlyStore) Append(context.Context, audit.Event) error {
	s.appended++
	return nil
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		AssemblyID: "asm-1",
		Action:     string(audit.EventAttendeeRegistered),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), "asm-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventAttendeeRegistered), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_FillsRequestScopedValues(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)
	ctx = requestcontext.WithRequestID(ctx, "req-42")

	require.NoError(t, pub.Emit(ctx, audit.Event{AssemblyID: "asm-1", Action: string(audit.EventVoterBlocked)}))

	events, err := store.ListByAssembly(ctx, "asm-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
	assert.Equal(t, "req-42", events[0].RequestID)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			AssemblyID: "asm-2",
			Action:     string(audit.EventBallotSubmitted),
		})
		require.NoError(t, err)
	}

	pub.Close()
	pub.Close()

	events, err := store.ListByAssembly(context.Background(), "asm-2")
	require.NoError(t, err)
	assert.Len(t, events, 10)
}

func TestPublisher_ListUnsupported(t *testing.T) {
	store := &writeOnlyStore{}
	pub := NewPublisher(store)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: "x"}))
	assert.Equal(t, 1, store.appended)

	_, err := pub.List(context.Background(), "asm")
	assert.ErrorIs(t, err, ErrListUnsupported)
}

func TestHashDocument(t *testing.T) {
	assert.Equal(t, audit.HashDocument(" ABC "), audit.HashDocument("abc"))
	assert.Empty(t, audit.HashDocument("  "))
	assert.Len(t, audit.HashDocument("12345"), 64)
}
