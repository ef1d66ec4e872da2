package ledger

import (
	"context"
	"fmt"
	"sync/atomic"

	"mfgverify/pkg/domain"
	"mfgverify/pkg/platform/sentinel"
)

// Manual is a height held in memory and advanced explicitly. It suits tests
// and single-process deployments where nothing else drives the height.
type Manual struct {
	height atomic.Uint64
}

// NewManual starts at initial, or at 1 when initial is 0.
func NewManual(initial domain.Height) *Manual {
	m := &Manual{}
	m.height.Store(uint64(max(initial, 1)))
	return m
}

func (m *Manual) Current(_ context.Context) (domain.Height, error) {
	return domain.Height(m.height.Load()), nil
}

// Set moves the height to h. The height never goes backwards.
func (m *Manual) Set(h domain.Height) error {
	for {
		cur := m.height.Load()
		if uint64(h) < cur {
			return fmt.Errorf("height %d is below current %d: %w", h, cur, sentinel.ErrInvalidState)
		}
		if m.height.CompareAndSwap(cur, uint64(h)) {
			return nil
		}
	}
}

// Advance adds n to the height and returns the new value.
func (m *Manual) Advance(n uint64) domain.Height {
	return domain.Height(m.height.Add(n))
}
