package ledger

import (
	"context"
	"errors"
	"time"

	"mfgverify/pkg/domain"
)

// Clock derives the height from wall-clock time: one block per interval
// since genesis, starting at height 1.
type Clock struct {
	genesis  time.Time
	interval time.Duration
	now      func() time.Time
}

type ClockOption func(*Clock)

// WithNow overrides the time source.
func WithNow(now func() time.Time) ClockOption {
	return func(c *Clock) {
		c.now = now
	}
}

func NewClock(genesis time.Time, interval time.Duration, opts ...ClockOption) (*Clock, error) {
	if genesis.IsZero() {
		return nil, errors.New("genesis time is required")
	}
	if interval <= 0 {
		return nil, errors.New("block interval must be positive")
	}
	c := &Clock{genesis: genesis, interval: interval, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Current returns floor((now-genesis)/interval)+1. Times before genesis
// report height 1.
func (c *Clock) Current(_ context.Context) (domain.Height, error) {
	elapsed := c.now().Sub(c.genesis)
	if elapsed < 0 {
		return 1, nil
	}
	return domain.Height(elapsed/c.interval) + 1, nil
}
