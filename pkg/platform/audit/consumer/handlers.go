package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	audit "mfgverify/pkg/platform/audit"
)

// SinkHandler replays events into an audit.Sink, e.g. to rebuild the
// Postgres audit table from the topic. Appends are idempotent on event ID.
type SinkHandler struct {
	sink   audit.Sink
	logger *slog.Logger
}

func NewSinkHandler(sink audit.Sink, logger *slog.Logger) *SinkHandler {
	return &SinkHandler{sink: sink, logger: logger}
}

func (h *SinkHandler) Handle(ctx context.Context, event audit.Event) error {
	if err := h.sink.Append(ctx, event); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

// SecurityHandler surfaces denied administrative attempts at warn level so
// they reach log-based alerting, then forwards to next when set.
type SecurityHandler struct {
	next   Handler
	logger *slog.Logger
}

func NewSecurityHandler(logger *slog.Logger, next Handler) *SecurityHandler {
	return &SecurityHandler{next: next, logger: logger}
}

func (h *SecurityHandler) Handle(ctx context.Context, event audit.Event) error {
	h.logger.WarnContext(ctx, "registry admin action denied",
		"event_id", event.ID,
		"actor_id", event.ActorID,
		"action", event.Action,
		"reason", event.Reason,
		"client_ip", event.ClientIP,
		"request_id", event.RequestID,
	)
	if h.next == nil {
		return nil
	}
	return h.next.Handle(ctx, event)
}

// LineWriter writes each event as one JSON object per line.
type LineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{enc: json.NewEncoder(w)}
}

type line struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp,omitempty"`
	ActorID   string `json:"actor_id"`
	Subject   string `json:"subject"`
	Action    string `json:"action"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Height    uint64 `json:"height,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

func (h *LineWriter) Handle(_ context.Context, event audit.Event) error {
	l := line{
		ID:        event.ID,
		Category:  string(event.Category),
		ActorID:   event.ActorID.String(),
		Subject:   event.Subject,
		Action:    event.Action,
		Decision:  event.Decision,
		Reason:    event.Reason,
		Height:    uint64(event.Height),
		RequestID: event.RequestID,
		ClientIP:  event.ClientIP,
		UserAgent: event.UserAgent,
	}
	if !event.Timestamp.IsZero() {
		l.Timestamp = event.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.enc.Encode(l)
}
