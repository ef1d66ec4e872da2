//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"mfgverify/pkg/domain"
	audit "mfgverify/pkg/platform/audit"
	"mfgverify/pkg/platform/audit/store/postgres"
	"mfgverify/pkg/testutil/containers"
)

type PostgresAuditSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *postgres.Store
}

func TestPostgresAuditSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresAuditSuite))
}

func (s *PostgresAuditSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = postgres.New(s.postgres.DB)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresAuditSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "audit_events"))
}

func newEvent(subject string, action audit.AuditEvent, at time.Time) audit.Event {
	return audit.Event{
		ID:        uuid.NewString(),
		Category:  action.Category(),
		Timestamp: at,
		ActorID:   domain.Principal("ST1ADMIN"),
		Subject:   subject,
		Action:    string(action),
		Decision:  "ok",
		RequestID: "req-" + subject,
	}
}

func (s *PostgresAuditSuite) TestRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)
	e := newEvent("MAN001", audit.EventManufacturerVerified, now)
	e.Height = 12345

	s.Require().NoError(s.store.Append(ctx, e))

	got, err := s.store.ListBySubject(ctx, "MAN001")
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(e.ID, got[0].ID)
	s.Equal(audit.CategoryCompliance, got[0].Category)
	s.Equal(domain.Height(12345), got[0].Height)
	s.Equal(domain.Principal("ST1ADMIN"), got[0].ActorID)
	s.True(now.Equal(got[0].Timestamp))
}

func (s *PostgresAuditSuite) TestAppendIsIdempotentPerID() {
	ctx := context.Background()
	e := newEvent("MAN002", audit.EventManufacturerRegistered, time.Now())

	s.Require().NoError(s.store.Append(ctx, e))
	s.Require().NoError(s.store.Append(ctx, e))

	got, err := s.store.ListBySubject(ctx, "MAN002")
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *PostgresAuditSuite) TestListRecentAndByActions() {
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)
	s.Require().NoError(s.store.Append(ctx, newEvent("A", audit.EventManufacturerRegistered, base)))
	s.Require().NoError(s.store.Append(ctx, newEvent("B", audit.EventAdminActionDenied, base.Add(time.Second))))
	s.Require().NoError(s.store.Append(ctx, newEvent("C", audit.EventManufacturerVerified, base.Add(2*time.Second))))

	recent, err := s.store.ListRecent(ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("B", recent[0].Subject)
	s.Equal("C", recent[1].Subject)

	denied, err := s.store.ListByActions(ctx, []audit.AuditEvent{audit.EventAdminActionDenied})
	s.Require().NoError(err)
	s.Require().Len(denied, 1)
	s.Equal("B", denied[0].Subject)
}
