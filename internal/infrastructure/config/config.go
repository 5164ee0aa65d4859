// Package config loads service settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"archie-core-commerce-sync/internal/domain"

	"github.com/joho/godotenv"
)

// Queue backends
const (
	QueueDriverMongo    = "mongo"
	QueueDriverPostgres = "postgres"
	QueueDriverMemory   = "memory"
)

// Config holds every runtime setting
type Config struct {
	Port    string
	AppURL  string
	Version string

	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool

	RedisURL       string
	DeliveryTTL    time.Duration
	KafkaBrokers   []string
	KafkaTopic     string
	EncryptionKey  string
	ShopifyAPIKey  string
	ShopifySecret  string
	PlatformRPS    float64
	PlatformBurst  int
	RequestTimeout time.Duration

	QueueDriver       string
	PostgresDSN       string
	QueueRetryBase    time.Duration
	QueueMaxBackoff   time.Duration
	QueuePollInterval time.Duration
	QueueBatchSize    int
	// QueueVisibility is how long a claimed item may stay in processing before it is claimable again
	QueueVisibility time.Duration

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int

	SchedulerEnabled     bool
	SchedulerInterval    time.Duration
	SchedulerBatchSize   int
	SyncFailureThreshold int
}

// Load reads .env (if present) and the environment
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}
	cfg := &Config{
		Port:    r.str("PORT", "8080"),
		AppURL:  r.str("APP_URL", "http://localhost:8080"),
		Version: r.str("APP_VERSION", "dev"),

		MongoURI:          r.str("MONGODB_URI", ""),
		MongoDatabase:     r.str("MONGODB_DATABASE", "commerce_sync"),
		MongoTransactions: r.boolean("MONGODB_TRANSACTIONS", true),

		RedisURL:       r.str("REDIS_URL", ""),
		DeliveryTTL:    r.duration("WEBHOOK_DEDUPE_TTL", 24*time.Hour),
		KafkaBrokers:   r.list("KAFKA_BROKERS"),
		KafkaTopic:     r.str("KAFKA_TOPIC", "commerce.events"),
		EncryptionKey:  r.str("ENCRYPTION_KEY", ""),
		ShopifyAPIKey:  r.str("SHOPIFY_API_KEY", ""),
		ShopifySecret:  r.str("SHOPIFY_API_SECRET", ""),
		PlatformRPS:    r.float("PLATFORM_RATE_LIMIT", 5),
		PlatformBurst:  r.integer("PLATFORM_RATE_BURST", 10),
		RequestTimeout: r.duration("PLATFORM_REQUEST_TIMEOUT", 30*time.Second),

		QueueDriver:       strings.ToLower(r.str("QUEUE_DRIVER", QueueDriverMongo)),
		PostgresDSN:       r.str("POSTGRES_DSN", ""),
		QueueRetryBase:    r.duration("QUEUE_RETRY_BASE", 30*time.Second),
		QueueMaxBackoff:   r.duration("QUEUE_MAX_BACKOFF", 30*time.Minute),
		QueuePollInterval: r.duration("QUEUE_POLL_INTERVAL", 5*time.Second),
		QueueBatchSize:    r.integer("QUEUE_BATCH_SIZE", 20),
		QueueVisibility:   r.duration("QUEUE_VISIBILITY_TIMEOUT", 10*time.Minute),

		OutboxPollInterval: r.duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    r.integer("OUTBOX_BATCH_SIZE", 50),
		OutboxMaxAttempts:  r.integer("OUTBOX_MAX_ATTEMPTS", 5),

		SchedulerEnabled:     r.boolean("SCHEDULER_ENABLED", true),
		SchedulerInterval:    r.duration("SCHEDULER_INTERVAL", 15*time.Minute),
		SchedulerBatchSize:   r.integer("SCHEDULER_BATCH_SIZE", 5),
		SyncFailureThreshold: r.integer("SYNC_FAILURE_THRESHOLD", 5),
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.QueueDriver {
	case QueueDriverMongo, QueueDriverMemory:
	case QueueDriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("config: POSTGRES_DSN is required when QUEUE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("config: unknown QUEUE_DRIVER %q", c.QueueDriver)
	}
	if c.QueueDriver == QueueDriverMongo && c.MongoURI == "" {
		return fmt.Errorf("config: MONGODB_URI is required when QUEUE_DRIVER=mongo")
	}
	if c.SchedulerBatchSize <= 0 {
		c.SchedulerBatchSize = 5
	}
	return nil
}

// RetryPolicy returns the queue backoff policy
func (c *Config) RetryPolicy() domain.RetryPolicy {
	return domain.RetryPolicy{Base: c.QueueRetryBase, Max: c.QueueMaxBackoff, Visibility: c.QueueVisibility}
}

// WebhookSecrets reads WEBHOOK_SECRET_<PLATFORM> for every supported platform
func WebhookSecrets(getenv func(string) string) map[domain.Platform]string {
	secrets := make(map[domain.Platform]string)
	for _, p := range domain.SupportedPlatforms {
		if v := getenv("WEBHOOK_SECRET_" + p.EnvKey()); v != "" {
			secrets[p] = v
		}
	}
	return secrets
}

type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r *reader) boolean(key string, def bool) bool {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return v
}

func (r *reader) integer(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return v
}

func (r *reader) float(key string, def float64) float64 {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return v
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.fail(key, err)
		return def
	}
	return v
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("config: invalid %s: %w", key, err)
	}
}
