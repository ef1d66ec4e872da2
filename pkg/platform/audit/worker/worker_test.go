package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "mfgverify/pkg/platform/audit"
	"mfgverify/pkg/platform/audit/store/memory"
)

type failingSink struct{}

func (failingSink) Append(context.Context, audit.Event) error { return errors.New("down") }

func TestWorker_DrainsUntilClosed(t *testing.T) {
	store := memory.NewInMemoryStore()
	inbox := make(chan audit.Event, 5)
	for range 5 {
		inbox <- audit.Event{Subject: "MAN001"}
	}
	close(inbox)

	err := NewWorker(store, inbox, nil).Run(context.Background())
	require.NoError(t, err)

	events, err := store.ListBySubject(context.Background(), "MAN001")
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestWorker_ReportsErrorsAndContinues(t *testing.T) {
	inbox := make(chan audit.Event, 2)
	inbox <- audit.Event{Subject: "a"}
	inbox <- audit.Event{Subject: "b"}
	close(inbox)

	var failed []string
	err := NewWorker(failingSink{}, inbox, func(e audit.Event, _ error) {
		failed = append(failed, e.Subject)
	}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, failed)
}

func TestWorker_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := NewWorker(memory.NewInMemoryStore(), make(chan audit.Event), nil).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
