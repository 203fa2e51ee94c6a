package worker

import (
	"context"
	"log/slog"

	audit "asamblea/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Append
// failures are logged and the worker keeps draining; audit delivery must
// never stall the domain path that emitted the event.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until it is closed or ctx is done. Closing the inbox
// is the graceful path: every buffered event is appended before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to append audit event",
					"action", event.Action,
					"assembly_id", event.AssemblyID,
					"error", err,
				)
			}
		}
	}
}
