package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "asamblea/pkg/platform/audit"
	"asamblea/pkg/platform/audit/worker"
	"asamblea/pkg/requestcontext"
)

// ErrListUnsupported is returned by List when the backing store is write-only.
var ErrListUnsupported = errors.New("audit store does not support listing")

// Publisher captures structured audit events. It is append-only. In async
// mode events are buffered on a channel drained by a worker; when the buffer
// is full Emit falls back to a synchronous append.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	bufferSize int
	inbox      chan audit.Event
	cancel     context.CancelFunc
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode with a buffer of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		w := worker.NewWorker(store, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(ctx)
		}()
	}
	return p
}

// Emit fills defaults (timestamp, category, request id) and records the event.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = audit.CategoryFor(event.Action)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.inbox == nil || p.closed {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return p.store.Append(ctx, event)
	}
}

// List returns the events recorded for an assembly when the store supports it.
func (p *Publisher) List(ctx context.Context, assemblyID string) ([]audit.Event, error) {
	lister, ok := p.store.(audit.Lister)
	if !ok {
		return nil, ErrListUnsupported
	}
	return lister.ListByAssembly(ctx, assemblyID)
}

// Close drains buffered events and stops the worker. Events emitted after
// Close are appended synchronously. Safe to call twice.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.inbox == nil || p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(5 * time.Second):
		p.logger.Warn("audit publisher close timed out; dropping buffered events")
	}
	p.cancel()
}
