package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mfgverify/pkg/domain"
)

func TestAccessors(t *testing.T) {
	t.Run("empty context yields zero values", func(t *testing.T) {
		ctx := context.Background()
		assert.True(t, Caller(ctx).IsZero())
		assert.Empty(t, RequestID(ctx))
		assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
	})

	t.Run("injected values round-trip", func(t *testing.T) {
		fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		ctx := WithCaller(context.Background(), domain.Principal("ST1ADMIN"))
		ctx = WithRequestID(ctx, "req-1")
		ctx = WithTime(ctx, fixed)

		assert.Equal(t, domain.Principal("ST1ADMIN"), Caller(ctx))
		assert.Equal(t, "req-1", RequestID(ctx))
		assert.Equal(t, fixed, Now(ctx))
	})
}
