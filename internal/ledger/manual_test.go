package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfgverify/pkg/domain"
	"mfgverify/pkg/platform/sentinel"
)

func TestManual(t *testing.T) {
	ctx := context.Background()

	t.Run("zero initial starts at one", func(t *testing.T) {
		h, err := NewManual(0).Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.Height(1), h)
	})

	t.Run("set moves forward only", func(t *testing.T) {
		m := NewManual(10)
		require.NoError(t, m.Set(12345))
		h, _ := m.Current(ctx)
		assert.Equal(t, domain.Height(12345), h)

		err := m.Set(5)
		assert.True(t, errors.Is(err, sentinel.ErrInvalidState))
		h, _ = m.Current(ctx)
		assert.Equal(t, domain.Height(12345), h)
	})

	t.Run("concurrent advances are all counted", func(t *testing.T) {
		m := NewManual(1)
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.Advance(2)
			}()
		}
		wg.Wait()
		h, _ := m.Current(ctx)
		assert.Equal(t, domain.Height(101), h)
	})
}
