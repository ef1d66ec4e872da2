package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mfgverify/internal/ledger"
	"mfgverify/internal/platform/config"
	platformredis "mfgverify/internal/platform/redis"
	"mfgverify/pkg/domain"
)

// newHeightCmd manages the Redis-published ledger height that servers run
// with MFGV_HEIGHT_SOURCE=redis read from.
func newHeightCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "height",
		Short: "Inspect or publish the ledger height in Redis",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the published ledger height",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHeightSource(cmd.Context(), v, func(src *ledger.RedisHeight) error {
				h, err := src.Current(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), h)
				return err
			})
		},
	}

	advance := &cobra.Command{
		Use:   "advance HEIGHT",
		Short: "Publish HEIGHT if it is above the current one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := domain.ParseHeight(args[0])
			if err != nil {
				return err
			}
			return withHeightSource(cmd.Context(), v, func(src *ledger.RedisHeight) error {
				h, err := src.Advance(cmd.Context(), target)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), h)
				return err
			})
		},
	}

	cmd.AddCommand(show, advance)
	return cmd
}

func withHeightSource(ctx context.Context, v *viper.Viper, fn func(*ledger.RedisHeight) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := platformredis.New(ctx, config.RedisConfig{
		URL:          v.GetString("redis.url"),
		DialTimeout:  v.GetDuration("redis.dial_timeout"),
		ReadTimeout:  v.GetDuration("redis.read_timeout"),
		WriteTimeout: v.GetDuration("redis.write_timeout"),
	})
	if err != nil {
		return err
	}
	if client == nil {
		return errors.New("redis is not configured (MFGV_REDIS_URL)")
	}
	defer client.Close()
	return fn(ledger.NewRedisHeight(client.Client, v.GetString("height.redis_key")))
}
