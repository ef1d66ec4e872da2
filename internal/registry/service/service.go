package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mfgverify/internal/registry/metrics"
	"mfgverify/internal/registry/models"
	"mfgverify/pkg/domain"
	dErrors "mfgverify/pkg/domain-errors"
	audit "mfgverify/pkg/platform/audit"
	"mfgverify/pkg/platform/middleware/metadata"
	"mfgverify/pkg/platform/sentinel"
	"mfgverify/pkg/requestcontext"
)

const tracerName = "mfgverify/internal/registry/service"

// ManufacturerStore holds manufacturer records keyed by id.
type ManufacturerStore interface {
	CreateIfAbsent(ctx context.Context, m *models.Manufacturer) error
	Lookup(ctx context.Context, id domain.ManufacturerID) (*models.Manufacturer, bool)
	Update(ctx context.Context, m *models.Manufacturer) error
	Count(ctx context.Context) (total, verified int)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the manufacturer registry. One administrator may register and
// verify manufacturers and hand administration to another principal; anyone
// may query.
//
// Every operation runs as a single check-then-act unit under mu, so two
// registrations of the same id never both succeed and an admin hand-over is
// totally ordered against the operations it races with. Queries share the
// read lock and never observe a record mid-mutation.
type Service struct {
	mu             sync.RWMutex
	admin          domain.Principal
	manufacturers  ManufacturerStore
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	clock          func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithClock overrides the time source used to stamp registrations when the
// request context carries no request time.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// New constructs the registry with admin as its initial administrator.
func New(admin domain.Principal, manufacturers ManufacturerStore, opts ...Option) (*Service, error) {
	if admin.IsZero() {
		return nil, errors.New("admin principal is required")
	}
	if manufacturers == nil {
		return nil, errors.New("manufacturer store is required")
	}
	s := &Service{
		admin:         admin,
		manufacturers: manufacturers,
		logger:        slog.New(slog.DiscardHandler),
		tracer:        otel.Tracer(tracerName),
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register adds a new, unverified manufacturer record. Only the admin may
// register; an id that is already present fails with a conflict and leaves
// the stored record untouched.
func (s *Service) Register(ctx context.Context, caller domain.Principal, req *models.RegisterRequest) (err error) {
	start := time.Now()
	var rawID string
	if req != nil {
		rawID = req.ID
	}
	ctx, span := s.startSpan(ctx, "Register", rawID)
	defer func() { s.finish(span, "register", start, err) }()

	var (
		created *models.Manufacturer
		denied  *audit.Event
	)
	err = func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if denied = s.authorize(ctx, caller, "register", rawID); denied != nil {
			return errNotAdmin()
		}
		if req == nil {
			return dErrors.New(dErrors.CodeBadRequest, "request is required")
		}
		id, err := domain.ParseManufacturerID(req.ID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "invalid manufacturer id")
		}
		if _, exists := s.manufacturers.Lookup(ctx, id); exists {
			return dErrors.New(dErrors.CodeConflict, "manufacturer already exists")
		}

		m, err := models.NewManufacturer(id, req.Name, req.Address, req.LicenseNumber, s.now(ctx))
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}
		if err := s.manufacturers.CreateIfAbsent(ctx, m); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return dErrors.New(dErrors.CodeConflict, "manufacturer already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store manufacturer")
		}
		created = m
		s.refreshCounts(ctx)
		return nil
	}()
	if denied != nil {
		s.emit(ctx, *denied)
	}
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementRegistered()
	}
	s.logAudit(ctx, audit.EventManufacturerRegistered,
		"manufacturer_id", created.ID,
		"actor", caller,
	)
	s.emit(ctx, audit.Event{
		Action:   string(audit.EventManufacturerRegistered),
		ActorID:  caller,
		Subject:  created.ID.String(),
		Decision: "granted",
	})
	return nil
}

// Verify marks a registered manufacturer verified at height and returns the
// resulting record. Re-verifying an already verified manufacturer succeeds
// without changing the recorded height.
func (s *Service) Verify(ctx context.Context, caller domain.Principal, id domain.ManufacturerID, height domain.Height) (_ *models.Manufacturer, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "Verify", id.String())
	span.SetAttributes(heightAttr(height))
	defer func() { s.finish(span, "verify", start, err) }()

	var (
		record  *models.Manufacturer
		changed bool
		denied  *audit.Event
	)
	err = func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if denied = s.authorize(ctx, caller, "verify", id.String()); denied != nil {
			return errNotAdmin()
		}
		m, ok := s.manufacturers.Lookup(ctx, id)
		if !ok {
			return dErrors.New(dErrors.CodeNotFound, "manufacturer not found")
		}
		var err error
		changed, err = m.Verify(height)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeValidation, err.Error())
			}
			return err
		}
		if changed {
			if err := s.manufacturers.Update(ctx, m); err != nil {
				if errors.Is(err, sentinel.ErrNotFound) {
					return dErrors.New(dErrors.CodeNotFound, "manufacturer not found")
				}
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update manufacturer")
			}
			s.refreshCounts(ctx)
		}
		record = m
		return nil
	}()
	if denied != nil {
		s.emit(ctx, *denied)
	}
	if err != nil {
		return nil, err
	}

	if !changed {
		s.logger.InfoContext(ctx, "manufacturer already verified",
			"manufacturer_id", id,
			"verification_height", record.VerificationHeight,
			"requested_height", height,
		)
		return record, nil
	}

	if s.metrics != nil {
		s.metrics.IncrementVerified()
	}
	s.logAudit(ctx, audit.EventManufacturerVerified,
		"manufacturer_id", id,
		"verification_height", height,
		"actor", caller,
	)
	s.emit(ctx, audit.Event{
		Action:   string(audit.EventManufacturerVerified),
		ActorID:  caller,
		Subject:  id.String(),
		Decision: "granted",
		Height:   height,
	})
	return record, nil
}

// IsVerified reports whether id is verified. Unknown ids are an error.
func (s *Service) IsVerified(ctx context.Context, id domain.ManufacturerID) (_ bool, err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "IsVerified", id.String())
	defer func() { s.finish(span, "is_verified", start, err) }()

	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.manufacturers.Lookup(ctx, id)
	if !ok {
		return false, dErrors.New(dErrors.CodeNotFound, "manufacturer not found")
	}
	return m.Verified, nil
}

// GetDetails returns the record for id. Absence is reported through the
// boolean, never as an error.
func (s *Service) GetDetails(ctx context.Context, id domain.ManufacturerID) (*models.Manufacturer, bool) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "GetDetails", id.String())

	s.mu.RLock()
	m, ok := s.manufacturers.Lookup(ctx, id)
	s.mu.RUnlock()

	span.SetAttributes(attribute.Bool("manufacturer.found", ok))
	outcome := "found"
	if !ok {
		outcome = "absent"
	}
	if s.metrics != nil {
		s.metrics.ObserveOperation("get_details", outcome, start)
	}
	span.End()
	return m, ok
}

// TransferAdmin hands administration to newAdmin. The current admin may
// transfer to any valid principal, including itself.
func (s *Service) TransferAdmin(ctx context.Context, caller, newAdmin domain.Principal) (err error) {
	start := time.Now()
	ctx, span := s.startSpan(ctx, "TransferAdmin", "")
	defer func() { s.finish(span, "transfer_admin", start, err) }()

	var denied *audit.Event
	err = func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		if denied = s.authorize(ctx, caller, "transfer_admin", newAdmin.String()); denied != nil {
			return errNotAdmin()
		}
		if _, err := domain.ParsePrincipal(newAdmin.String()); err != nil {
			return dErrors.Wrap(err, dErrors.CodeValidation, "invalid new admin")
		}
		s.admin = newAdmin
		return nil
	}()
	if denied != nil {
		s.emit(ctx, *denied)
	}
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.IncrementAdminTransfers()
	}
	s.logAudit(ctx, audit.EventAdminTransferred,
		"previous_admin", caller,
		"new_admin", newAdmin,
	)
	s.emit(ctx, audit.Event{
		Action:   string(audit.EventAdminTransferred),
		ActorID:  caller,
		Subject:  newAdmin.String(),
		Decision: "granted",
	})
	return nil
}

// Admin returns the current administrator.
func (s *Service) Admin(_ context.Context) domain.Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admin
}

// authorize must be called with mu held. A denied caller gets back the audit
// event to emit once mu is released; nil means the caller is the admin.
func (s *Service) authorize(ctx context.Context, caller domain.Principal, operation, subject string) *audit.Event {
	if caller == s.admin {
		return nil
	}
	if s.metrics != nil {
		s.metrics.IncrementDenied(operation)
	}
	s.logger.WarnContext(ctx, "admin operation denied",
		"event", string(audit.EventAdminActionDenied),
		"log_type", "audit",
		"operation", operation,
		"actor", caller,
		"subject", subject,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &audit.Event{
		Action:   string(audit.EventAdminActionDenied),
		ActorID:  caller,
		Subject:  subject,
		Decision: "denied",
		Reason:   operation + ": caller is not the registry admin",
	}
}

func errNotAdmin() error {
	return dErrors.New(dErrors.CodeForbidden, "caller is not the registry admin")
}

// heightAttr records height on a span. Heights above MaxInt64 are clamped.
func heightAttr(h domain.Height) attribute.KeyValue {
	if h > math.MaxInt64 {
		return attribute.Int64("ledger.height", math.MaxInt64)
	}
	return attribute.Int64("ledger.height", int64(h))
}

func (s *Service) now(ctx context.Context) time.Time {
	if t := requestcontext.Now(ctx); !t.IsZero() {
		return t
	}
	return s.clock()
}

func (s *Service) refreshCounts(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	total, verified := s.manufacturers.Count(ctx)
	s.metrics.SetCounts(total, verified)
}

func (s *Service) startSpan(ctx context.Context, name, manufacturerID string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "registry."+name)
	if manufacturerID != "" {
		span.SetAttributes(attribute.String("manufacturer.id", manufacturerID))
	}
	return ctx, span
}

func (s *Service) finish(span trace.Span, operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(dErrors.CodeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.SetAttributes(attribute.String("registry.outcome", outcome))
	span.End()
	if s.metrics != nil {
		s.metrics.ObserveOperation(operation, outcome, start)
	}
}

// emit hands the event to the audit publisher. Audit failures never fail the
// operation that produced them.
func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = metadata.GetClientIP(ctx)
	event.UserAgent = metadata.GetUserAgent(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"subject", event.Subject,
			"error", err,
		)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attrs ...any) {
	args := append([]any{"event", string(event), "log_type", "audit", "request_id", requestcontext.RequestID(ctx)}, attrs...)
	s.logger.InfoContext(ctx, string(event), args...)
}
