package audit

import (
	"context"
	"time"

	"mfgverify/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers registry state changes that regulators care
	// about: registrations, verifications and admin hand-overs.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers denied administrative attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers everything else.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	// ActorID is the principal that invoked the operation.
	ActorID domain.Principal
	// Subject is the manufacturer id, or the new admin for hand-overs.
	Subject   string
	Action    string
	Decision  string
	Reason    string
	Height    domain.Height
	RequestID string
	// ClientIP and UserAgent describe where the call came from, when known.
	ClientIP  string
	UserAgent string
}

type AuditEvent string

const (
	EventManufacturerRegistered AuditEvent = "manufacturer_registered"
	EventManufacturerVerified   AuditEvent = "manufacturer_verified"
	EventAdminTransferred       AuditEvent = "admin_transferred"
	EventAdminActionDenied      AuditEvent = "admin_action_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventManufacturerRegistered: CategoryCompliance,
	EventManufacturerVerified:   CategoryCompliance,
	EventAdminTransferred:       CategoryCompliance,
	EventAdminActionDenied:      CategorySecurity,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Sink receives audit events. Stores and brokers both implement it.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a Sink that can be queried back.
type Store interface {
	Sink
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
