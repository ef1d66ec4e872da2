package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/twmb/franz-go/pkg/kgo"

	"mfgverify/internal/platform/config"
	"mfgverify/internal/platform/kafka"
	"mfgverify/internal/platform/postgres"
	audit "mfgverify/pkg/platform/audit"
	"mfgverify/pkg/platform/audit/consumer"
	pgstore "mfgverify/pkg/platform/audit/store/postgres"
)

func newAuditCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit topic",
	}

	var (
		fromStart bool
		category  string
	)
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Stream audit events from Kafka as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := consumer.NewLineWriter(cmd.OutOrStdout())
			var handler consumer.Handler = out
			if category != "" {
				router := consumer.NewRouter(nil, nil)
				router.Register(audit.EventCategory(category), out)
				handler = router
			}
			return consumeAudit(cmd.Context(), v, fromStart, handler)
		},
	}
	tail.Flags().BoolVar(&fromStart, "from-start", false, "Read the topic from the earliest offset")
	tail.Flags().StringVar(&category, "category", "", "Only print events of this category (compliance, security, operations)")

	replay := &cobra.Command{
		Use:   "replay",
		Short: "Copy every audit event on the topic into the Postgres audit table",
		Long: `Replay reads the audit topic from the start and appends each event to the
table configured by MFGV_AUDIT_POSTGRES_DSN. Events already present are
skipped, so replay can be re-run. Denied admin actions are also logged.
Stop it with Ctrl-C once it has caught up.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			dsn := v.GetString("audit.postgres_dsn")
			if dsn == "" {
				return errors.New("postgres is not configured (MFGV_AUDIT_POSTGRES_DSN)")
			}
			db, err := postgres.Open(ctx, dsn)
			if err != nil {
				return err
			}
			defer db.Close()
			store := pgstore.New(db)
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
			sink := consumer.NewSinkHandler(store, logger)
			router := consumer.NewRouter(logger, sink)
			router.Register(audit.CategorySecurity, consumer.NewSecurityHandler(logger, sink))
			return consumeAudit(ctx, v, true, router)
		},
	}

	cmd.AddCommand(tail, replay)
	return cmd
}

func consumeAudit(ctx context.Context, v *viper.Viper, fromStart bool, handler consumer.Handler) error {
	if ctx == nil {
		ctx = context.Background()
	}
	brokers := config.SplitList(v.GetString("audit.kafka_brokers"))
	if len(brokers) == 0 {
		return errors.New("kafka is not configured (MFGV_AUDIT_KAFKA_BROKERS)")
	}
	topic := v.GetString("audit.kafka_topic")

	offset := kgo.NewOffset().AtEnd()
	if fromStart {
		offset = kgo.NewOffset().AtStart()
	}
	client, err := kafka.NewClient(brokers, topic,
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(offset),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	err = consumer.Run(ctx, client, handler, nil)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("consume %s: %w", topic, err)
	}
	return nil
}
