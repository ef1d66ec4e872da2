package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	jwttoken "mfgverify/internal/jwt_token"
	"mfgverify/internal/ledger"
	"mfgverify/internal/platform/config"
	"mfgverify/internal/platform/httpserver"
	platformkafka "mfgverify/internal/platform/kafka"
	"mfgverify/internal/platform/logger"
	"mfgverify/internal/platform/postgres"
	platformredis "mfgverify/internal/platform/redis"
	"mfgverify/internal/platform/telemetry"
	"mfgverify/internal/registry/handler"
	registrymetrics "mfgverify/internal/registry/metrics"
	"mfgverify/internal/registry/ports"
	"mfgverify/internal/registry/service"
	manufacturerstore "mfgverify/internal/registry/store/manufacturer"
	"mfgverify/pkg/domain"
	"mfgverify/pkg/platform/audit/publisher"
	kafkasink "mfgverify/pkg/platform/audit/publishers/kafka"
	auditmemory "mfgverify/pkg/platform/audit/store/memory"
	auditpostgres "mfgverify/pkg/platform/audit/store/postgres"
	"mfgverify/pkg/platform/httputil"
	"mfgverify/pkg/platform/middleware/auth"
	"mfgverify/pkg/platform/middleware/metadata"
	"mfgverify/pkg/platform/middleware/request"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// infra holds the optional backends so they can be closed in reverse order.
type infra struct {
	redis   *platformredis.Client
	db      *sql.DB
	kafka   *kgo.Client
	closers []func()
}

func (i *infra) close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		i.closers[j]()
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if cfg.UsesDevSigningKey() {
		log.Warn("using the development JWT signing key; set MFGV_JWT_SIGNING_KEY")
	}

	tp, shutdownTracing, err := telemetry.NewTracerProvider(ctx, cfg.Tracing, version, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	deps := &infra{}
	defer deps.close()
	if err := deps.connect(ctx, cfg, log); err != nil {
		return err
	}

	auditPublisher, err := newAuditPublisher(ctx, cfg, deps, log)
	if err != nil {
		return err
	}
	deps.closers = append(deps.closers, auditPublisher.Close)

	heights, err := newHeightSource(cfg, deps)
	if err != nil {
		return err
	}

	registry, err := service.New(domain.Principal(cfg.Admin), manufacturerstore.NewInMemory(),
		service.WithLogger(log.With("component", "registry")),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(registrymetrics.New(prometheus.DefaultRegisterer)),
		service.WithTracer(tp.Tracer("mfgverify/registry")),
	)
	if err != nil {
		return err
	}

	jwt := jwttoken.NewJWTService(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.Audience,
		jwttoken.WithLeeway(cfg.JWT.Leeway))

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(request.RequestID)
	r.Use(request.Time)
	r.Use(metadata.ClientMetadata)
	r.Use(auth.Authenticate(jwttoken.NewCallerValidator(jwt), log))
	r.Get("/health", healthHandler(deps))
	r.Handle("/metrics", promhttp.Handler())
	handler.New(registry, heights, log.With("component", "http")).Register(r)

	log.Info("starting mfgverify",
		"version", version,
		"addr", cfg.Addr,
		"admin", cfg.Admin,
		"height_source", cfg.Height.Source,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, httpserver.New(cfg.Addr, r), nil, log)
	})
	return g.Wait()
}

func (i *infra) connect(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if cfg.Redis.URL != "" {
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		i.redis = client
		i.closers = append(i.closers, func() { _ = client.Close() })
		log.Info("connected to redis")
	}
	if cfg.Audit.PostgresDSN != "" {
		db, err := postgres.Open(ctx, cfg.Audit.PostgresDSN)
		if err != nil {
			return err
		}
		i.db = db
		i.closers = append(i.closers, func() { _ = db.Close() })
		log.Info("connected to postgres")
	}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		client, err := platformkafka.NewClient(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		if err != nil {
			return err
		}
		i.kafka = client
		i.closers = append(i.closers, client.Close)
		log.Info("kafka client ready", "brokers", cfg.Audit.KafkaBrokers)
	}
	return nil
}

func newAuditPublisher(ctx context.Context, cfg config.Server, deps *infra, log *slog.Logger) (*publisher.Publisher, error) {
	opts := []publisher.Option{
		publisher.WithAsyncBuffer(cfg.Audit.Buffer),
		publisher.WithLogger(log.With("component", "audit")),
	}
	if deps.db != nil {
		store := auditpostgres.New(deps.db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		opts = append(opts, publisher.WithSink(store))
	}
	if deps.kafka != nil {
		if err := platformkafka.EnsureTopic(ctx, deps.kafka, cfg.Audit.KafkaTopic); err != nil {
			return nil, err
		}
		opts = append(opts, publisher.WithSink(kafkasink.New(deps.kafka, cfg.Audit.KafkaTopic)))
	}
	return publisher.NewPublisher(auditmemory.NewInMemoryStore(), opts...), nil
}

func newHeightSource(cfg config.Server, deps *infra) (ports.HeightSource, error) {
	switch cfg.Height.Source {
	case config.HeightSourceClock:
		return ledger.NewClock(cfg.Height.Genesis, cfg.Height.Interval)
	case config.HeightSourceRedis:
		if deps.redis == nil {
			return nil, errors.New("redis height source needs redis.url")
		}
		return ledger.NewRedisHeight(deps.redis.Client, cfg.Height.RedisKey), nil
	default:
		return ledger.NewManual(domain.Height(cfg.Height.Initial)), nil
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(deps *infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: map[string]string{}}
		if deps.redis != nil {
			resp.Checks["redis"] = checkResult(deps.redis.Health(ctx))
		}
		if deps.db != nil {
			resp.Checks["postgres"] = checkResult(deps.db.PingContext(ctx))
		}
		if deps.kafka != nil {
			resp.Checks["kafka"] = checkResult(deps.kafka.Ping(ctx))
		}
		status := http.StatusOK
		for _, v := range resp.Checks {
			if v != "ok" {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}

func checkResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
