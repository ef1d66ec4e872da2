package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. MFGV_ADDR.
const EnvPrefix = "MFGV"

// Height source kinds.
const (
	HeightSourceManual = "manual"
	HeightSourceClock  = "clock"
	HeightSourceRedis  = "redis"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Server captures service configuration.
type Server struct {
	Addr  string
	Admin string

	JWT     JWTConfig
	Height  HeightConfig
	Redis   RedisConfig
	Audit   AuditConfig
	Log     LogConfig
	Tracing TracingConfig
}

type JWTConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	TokenTTL   time.Duration
	// Leeway tolerates clock skew between token issuer and server.
	Leeway     time.Duration
}

// HeightConfig selects where verification heights come from.
type HeightConfig struct {
	Source   string
	Initial  uint64
	Genesis  time.Time
	Interval time.Duration
	RedisKey string
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// AuditConfig lists the optional durable audit sinks. The in-memory store is
// always on.
type AuditConfig struct {
	Buffer       int
	PostgresDSN  string
	KafkaBrokers []string
	KafkaTopic   string
}

type LogConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
	Insecure bool
	Sampling float64
}

// New returns a viper instance with defaults and environment binding set up.
// Keys use dots (jwt.signing_key) and map to MFGV_JWT_SIGNING_KEY.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("admin", "")
	v.SetDefault("jwt.signing_key", devSigningKey)
	v.SetDefault("jwt.issuer", "mfgverify")
	v.SetDefault("jwt.audience", "mfgverify-api")
	v.SetDefault("jwt.token_ttl", time.Hour)
	v.SetDefault("jwt.leeway", 30*time.Second)
	v.SetDefault("height.source", HeightSourceManual)
	v.SetDefault("height.initial", 1)
	v.SetDefault("height.genesis", "")
	v.SetDefault("height.interval", 12*time.Second)
	v.SetDefault("height.redis_key", "mfgverify:ledger:height")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("audit.buffer", 1024)
	v.SetDefault("audit.postgres_dsn", "")
	v.SetDefault("audit.kafka_brokers", "")
	v.SetDefault("audit.kafka_topic", "mfgverify.audit")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", false)
	v.SetDefault("tracing.sampling", 1.0)
	return v
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	return Load(New())
}

// Load reads and validates configuration from v.
func Load(v *viper.Viper) (Server, error) {
	cfg := Server{
		Addr:  v.GetString("addr"),
		Admin: strings.TrimSpace(v.GetString("admin")),
		JWT: JWTConfig{
			SigningKey: v.GetString("jwt.signing_key"),
			Issuer:     v.GetString("jwt.issuer"),
			Audience:   v.GetString("jwt.audience"),
			TokenTTL:   v.GetDuration("jwt.token_ttl"),
			Leeway:     v.GetDuration("jwt.leeway"),
		},
		Height: HeightConfig{
			Source:   strings.ToLower(v.GetString("height.source")),
			Initial:  v.GetUint64("height.initial"),
			Interval: v.GetDuration("height.interval"),
			RedisKey: v.GetString("height.redis_key"),
		},
		Redis: RedisConfig{
			URL:          v.GetString("redis.url"),
			PoolSize:     v.GetInt("redis.pool_size"),
			MinIdleConns: v.GetInt("redis.min_idle_conns"),
			DialTimeout:  v.GetDuration("redis.dial_timeout"),
			ReadTimeout:  v.GetDuration("redis.read_timeout"),
			WriteTimeout: v.GetDuration("redis.write_timeout"),
		},
		Audit: AuditConfig{
			Buffer:       v.GetInt("audit.buffer"),
			PostgresDSN:  v.GetString("audit.postgres_dsn"),
			KafkaBrokers: SplitList(v.GetString("audit.kafka_brokers")),
			KafkaTopic:   v.GetString("audit.kafka_topic"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Tracing: TracingConfig{
			Enabled:  v.GetBool("tracing.enabled"),
			Endpoint: v.GetString("tracing.endpoint"),
			Insecure: v.GetBool("tracing.insecure"),
			Sampling: v.GetFloat64("tracing.sampling"),
		},
	}

	if genesis := strings.TrimSpace(v.GetString("height.genesis")); genesis != "" {
		t, err := time.Parse(time.RFC3339, genesis)
		if err != nil {
			return Server{}, fmt.Errorf("height.genesis: %w", err)
		}
		cfg.Height.Genesis = t
	}

	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Server) Validate() error {
	var errs []error
	if c.Admin == "" {
		errs = append(errs, errors.New("admin is required (MFGV_ADMIN)"))
	}
	if c.JWT.SigningKey == "" {
		errs = append(errs, errors.New("jwt.signing_key is required"))
	}
	switch c.Height.Source {
	case HeightSourceManual:
	case HeightSourceClock:
		if c.Height.Genesis.IsZero() {
			errs = append(errs, errors.New("height.genesis is required for the clock height source"))
		}
		if c.Height.Interval <= 0 {
			errs = append(errs, errors.New("height.interval must be positive"))
		}
	case HeightSourceRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("redis.url is required for the redis height source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown height source %q", c.Height.Source))
	}
	if len(c.Audit.KafkaBrokers) > 0 && c.Audit.KafkaTopic == "" {
		errs = append(errs, errors.New("audit.kafka_topic is required when brokers are set"))
	}
	if c.Tracing.Sampling < 0 || c.Tracing.Sampling > 1 {
		errs = append(errs, errors.New("tracing.sampling must be within [0, 1]"))
	}
	return errors.Join(errs...)
}

// UsesDevSigningKey reports whether the built-in development key is in use.
func (c Server) UsesDevSigningKey() bool {
	return c.JWT.SigningKey == devSigningKey
}

// Redacted returns a copy safe to print.
func (c Server) Redacted() Server {
	out := c
	if out.JWT.SigningKey != "" {
		out.JWT.SigningKey = "[redacted]"
	}
	if out.Audit.PostgresDSN != "" {
		out.Audit.PostgresDSN = "[redacted]"
	}
	if out.Redis.URL != "" {
		out.Redis.URL = "[redacted]"
	}
	return out
}

// SplitList splits a comma-separated setting, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
