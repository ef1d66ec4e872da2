// Package consumer reads audit records back off the Kafka topic and routes
// them to per-category handlers.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"mfgverify/pkg/domain"
	audit "mfgverify/pkg/platform/audit"
	"mfgverify/pkg/platform/audit/publishers/kafka"
)

// Message is a single record read from the audit topic.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

// Handler processes one decoded audit event.
type Handler interface {
	Handle(ctx context.Context, event audit.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event audit.Event) error

func (f HandlerFunc) Handle(ctx context.Context, event audit.Event) error { return f(ctx, event) }

// Fetcher is the subset of *kgo.Client the consumer polls.
type Fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
}

// Decode turns a record written by the kafka publisher back into an Event.
// The category header wins over the payload so routing and decoding agree.
func Decode(msg *Message) (audit.Event, error) {
	var p kafka.Payload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		return audit.Event{}, fmt.Errorf("unmarshal audit record: %w", err)
	}
	if p.ID == "" || p.Action == "" {
		return audit.Event{}, errors.New("audit record is missing id or action")
	}
	event := audit.Event{
		ID:        p.ID,
		Category:  audit.EventCategory(p.Category),
		ActorID:   domain.Principal(p.ActorID),
		Subject:   p.Subject,
		Action:    p.Action,
		Decision:  p.Decision,
		Reason:    p.Reason,
		Height:    domain.Height(p.Height),
		RequestID: p.RequestID,
		ClientIP:  p.ClientIP,
		UserAgent: p.UserAgent,
	}
	if c := msg.Headers["category"]; c != "" {
		event.Category = audit.EventCategory(c)
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(p.Action).Category()
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		event.Timestamp = ts
	}
	return event, nil
}

// Router dispatches events to category-specific handlers.
type Router struct {
	handlers map[audit.EventCategory]Handler
	fallback Handler
	logger   *slog.Logger
}

// NewRouter creates a category router with an optional fallback handler.
func NewRouter(logger *slog.Logger, fallback Handler) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{
		handlers: make(map[audit.EventCategory]Handler),
		fallback: fallback,
		logger:   logger,
	}
}

// Register adds a handler for category, replacing any earlier one.
func (r *Router) Register(category audit.EventCategory, handler Handler) {
	r.handlers[category] = handler
}

func (r *Router) Handle(ctx context.Context, event audit.Event) error {
	handler, ok := r.handlers[event.Category]
	if !ok {
		if r.fallback != nil {
			return r.fallback.Handle(ctx, event)
		}
		r.logger.DebugContext(ctx, "no handler for audit category, skipping",
			"category", event.Category,
			"event_id", event.ID,
		)
		return nil
	}
	return handler.Handle(ctx, event)
}

// Run polls client until ctx is done, decoding each record and passing it to
// handler. Undecodable records are logged and skipped. A handler error stops
// the loop and is returned.
func Run(ctx context.Context, client Fetcher, handler Handler, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	for {
		fetches := client.PollFetches(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if fetches.IsClientClosed() {
			return nil
		}
		for _, fe := range fetches.Errors() {
			logger.WarnContext(ctx, "audit fetch failed",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err,
			)
		}

		var handleErr error
		fetches.EachRecord(func(rec *kgo.Record) {
			if handleErr != nil {
				return
			}
			msg := fromRecord(rec)
			event, err := Decode(msg)
			if err != nil {
				logger.WarnContext(ctx, "skipping undecodable audit record",
					"topic", msg.Topic,
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
				return
			}
			if err := handler.Handle(ctx, event); err != nil {
				handleErr = fmt.Errorf("handle audit event %s: %w", event.ID, err)
			}
		})
		if handleErr != nil {
			return handleErr
		}
	}
}

func fromRecord(rec *kgo.Record) *Message {
	headers := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
		Headers:   headers,
	}
}
