package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"mfgverify/pkg/domain"
	"mfgverify/pkg/platform/sentinel"
)

// DefaultHeightKey is where a ledger follower publishes the latest height.
const DefaultHeightKey = "mfgverify:ledger:height"

const maxAdvanceRetries = 5

// RedisHeight reads the height an external ledger follower writes to Redis.
type RedisHeight struct {
	client redis.UniversalClient
	key    string
}

func NewRedisHeight(client redis.UniversalClient, key string) *RedisHeight {
	if key == "" {
		key = DefaultHeightKey
	}
	return &RedisHeight{client: client, key: key}
}

// Current returns the published height. A missing key means no follower has
// reported yet and yields sentinel.ErrUnavailable.
func (r *RedisHeight) Current(ctx context.Context) (domain.Height, error) {
	raw, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("ledger height not published: %w", sentinel.ErrUnavailable)
	}
	if err != nil {
		return 0, fmt.Errorf("read ledger height: %w", err)
	}
	h, err := domain.ParseHeight(raw)
	if err != nil {
		return 0, fmt.Errorf("ledger height %q: %w", raw, err)
	}
	return h, nil
}

// Advance publishes h if it is above the stored height. Lower or equal
// values are ignored so followers racing each other cannot move it back.
// The compare-and-set runs under WATCH and retries on conflict.
func (r *RedisHeight) Advance(ctx context.Context, h domain.Height) (domain.Height, error) {
	if h == 0 {
		return 0, errors.New("height must be positive")
	}
	var stored domain.Height
	txf := func(tx *redis.Tx) error {
		stored = 0
		raw, err := tx.Get(ctx, r.key).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			cur, perr := strconv.ParseUint(raw, 10, 64)
			if perr != nil {
				return fmt.Errorf("stored ledger height %q: %w", raw, perr)
			}
			stored = domain.Height(cur)
		}
		if h <= stored {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, r.key, h.String(), 0)
			return nil
		})
		if err == nil {
			stored = h
		}
		return err
	}

	for range maxAdvanceRetries {
		err := r.client.Watch(ctx, txf, r.key)
		if err == nil {
			return stored, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return 0, fmt.Errorf("advance ledger height: %w", err)
	}
	return 0, fmt.Errorf("advance ledger height: %w", sentinel.ErrConflict)
}
