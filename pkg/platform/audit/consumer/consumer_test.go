package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"mfgverify/pkg/domain"
	audit "mfgverify/pkg/platform/audit"
	"mfgverify/pkg/platform/audit/publishers/kafka"
	"mfgverify/pkg/platform/audit/store/memory"
)

type capturingProducer struct {
	records []*kgo.Record
}

func (p *capturingProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	out := make(kgo.ProduceResults, len(rs))
	for i, r := range rs {
		out[i] = kgo.ProduceResult{Record: r}
	}
	return out
}

// scriptedFetcher serves one batch, then cancels the run.
type scriptedFetcher struct {
	mu      sync.Mutex
	batches []kgo.Fetches
	cancel  context.CancelFunc
}

func (f *scriptedFetcher) PollFetches(context.Context) kgo.Fetches {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		f.cancel()
		return nil
	}
	next := f.batches[0]
	f.batches = f.batches[1:]
	return next
}

func fetchesOf(records ...*kgo.Record) kgo.Fetches {
	return kgo.Fetches{{Topics: []kgo.FetchTopic{{
		Topic:      "registry.audit",
		Partitions: []kgo.FetchPartition{{Partition: 0, Records: records}},
	}}}}
}

func publishedRecord(t *testing.T, event audit.Event) *kgo.Record {
	t.Helper()
	p := &capturingProducer{}
	require.NoError(t, kafka.New(p, "registry.audit").Append(context.Background(), event))
	require.Len(t, p.records, 1)
	return p.records[0]
}

func sampleEvent(id string, action audit.AuditEvent) audit.Event {
	return audit.Event{
		ID:        id,
		Category:  action.Category(),
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ActorID:   domain.Principal("admin"),
		Subject:   "MAN001",
		Action:    string(action),
		Height:    7,
		RequestID: "req-1",
		ClientIP:  "10.0.0.1",
	}
}

func TestDecode_RoundTripsPublisherRecords(t *testing.T) {
	want := sampleEvent("evt-1", audit.EventManufacturerVerified)
	rec := publishedRecord(t, want)

	got, err := Decode(fromRecord(rec))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode_Rejects(t *testing.T) {
	_, err := Decode(&Message{Value: []byte(`{bad`)})
	assert.Error(t, err)

	_, err = Decode(&Message{Value: []byte(`{"id":"x"}`)})
	assert.Error(t, err)
}

func TestDecode_CategoryFallsBackToAction(t *testing.T) {
	got, err := Decode(&Message{Value: []byte(`{"id":"x","action":"admin_action_denied"}`)})
	require.NoError(t, err)
	assert.Equal(t, audit.CategorySecurity, got.Category)
}

func TestRouter(t *testing.T) {
	var compliance, fallback []string
	router := NewRouter(nil, HandlerFunc(func(_ context.Context, e audit.Event) error {
		fallback = append(fallback, e.ID)
		return nil
	}))
	router.Register(audit.CategoryCompliance, HandlerFunc(func(_ context.Context, e audit.Event) error {
		compliance = append(compliance, e.ID)
		return nil
	}))

	ctx := context.Background()
	require.NoError(t, router.Handle(ctx, sampleEvent("a", audit.EventManufacturerRegistered)))
	require.NoError(t, router.Handle(ctx, sampleEvent("b", audit.EventAdminActionDenied)))

	assert.Equal(t, []string{"a"}, compliance)
	assert.Equal(t, []string{"b"}, fallback)

	// without a fallback unknown categories are dropped
	bare := NewRouter(nil, nil)
	assert.NoError(t, bare.Handle(ctx, sampleEvent("c", audit.EventAdminActionDenied)))
}

func TestRun_ReplaysIntoSinkAndSkipsGarbage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := publishedRecord(t, sampleEvent("evt-1", audit.EventManufacturerRegistered))
	second := publishedRecord(t, sampleEvent("evt-2", audit.EventManufacturerVerified))
	garbage := &kgo.Record{Topic: "registry.audit", Value: []byte("not json")}

	fetcher := &scriptedFetcher{
		batches: []kgo.Fetches{fetchesOf(first, garbage), fetchesOf(second)},
		cancel:  cancel,
	}
	store := memory.NewInMemoryStore()

	err := Run(ctx, fetcher, NewSinkHandler(store, nil), nil)
	require.ErrorIs(t, err, context.Canceled)

	events, err := store.ListBySubject(context.Background(), "MAN001")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-1", events[0].ID)
	assert.Equal(t, "evt-2", events[1].ID)
}

func TestRun_StopsOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &scriptedFetcher{
		batches: []kgo.Fetches{fetchesOf(
			publishedRecord(t, sampleEvent("evt-1", audit.EventManufacturerRegistered)),
			publishedRecord(t, sampleEvent("evt-2", audit.EventManufacturerRegistered)),
		)},
		cancel: cancel,
	}
	boom := errors.New("sink down")
	calls := 0

	err := Run(ctx, fetcher, HandlerFunc(func(context.Context, audit.Event) error {
		calls++
		return boom
	}), nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestLineWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewLineWriter(&buf)
	require.NoError(t, w.Handle(context.Background(), sampleEvent("evt-1", audit.EventManufacturerVerified)))
	require.NoError(t, w.Handle(context.Background(), audit.Event{ID: "evt-2", Action: "x"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "manufacturer_verified", got["action"])
	assert.Equal(t, float64(7), got["height"])
	assert.Equal(t, "2026-03-01T12:00:00Z", got["timestamp"])

	var bare map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &bare))
	assert.NotContains(t, bare, "timestamp")
}
