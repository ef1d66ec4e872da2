package worker

import (
	"context"

	audit "mfgverify/pkg/platform/audit"
)

// Worker consumes audit events from a channel and hands them to a sink.
// A failing append is reported through onError and does not stop the loop.
type Worker struct {
	sink    audit.Sink
	inbox   <-chan audit.Event
	onError func(audit.Event, error)
}

func NewWorker(sink audit.Sink, inbox <-chan audit.Event, onError func(audit.Event, error)) *Worker {
	if onError == nil {
		onError = func(audit.Event, error) {}
	}
	return &Worker{sink: sink, inbox: inbox, onError: onError}
}

// Run processes events until the inbox is closed or ctx is cancelled.
// On close, every buffered event is delivered before Run returns nil.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.sink.Append(ctx, event); err != nil {
				w.onError(event, err)
			}
		}
	}
}
