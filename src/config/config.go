// Package config provides configuration management for the relay processes.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"kafka-relay/src/contracts"
)

// Broker drivers selectable with BROKER_DRIVER.
const (
	DriverFranz   = "franz"
	DriverKafkaGo = "kafka-go"
)

// Config holds the application configuration.
type Config struct {
	// KafkaBrokers lists seed broker addresses. Empty means in-memory (local mode only).
	KafkaBrokers []string
	// BrokerDriver selects the Kafka client library.
	BrokerDriver string
	// HTTPAddr is the gateway listen address.
	HTTPAddr string

	BatchTopic    string
	RecordTopic   string
	ConsumerGroup string

	// MaxBatchSize bounds a batch poll.
	MaxBatchSize int
	// PollTimeout bounds how long a poll waits for the first record.
	PollTimeout time.Duration
	// PublishTimeout bounds how long a publish waits for the broker ack.
	PublishTimeout time.Duration
	// RetryBackoffMin and RetryBackoffMax bound the consumer retry delay after broker errors.
	RetryBackoffMin time.Duration
	RetryBackoffMax time.Duration

	// Partitions is the partition count of the in-memory broker.
	Partitions int

	LogFormat string
	LogDebug  bool

	// PostgresDSN enables the Postgres outcome store when set.
	PostgresDSN string
}

// LoadFromEnv loads configuration from environment variables.
// A .env file in the working directory is read first when present; real
// environment variables take precedence over it.
func LoadFromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		BrokerDriver:  envOr("BROKER_DRIVER", DriverFranz),
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		BatchTopic:    envOr("BATCH_TOPIC", contracts.TopicBatch),
		RecordTopic:   envOr("RECORD_TOPIC", contracts.TopicRecord),
		ConsumerGroup: envOr("CONSUMER_GROUP", contracts.ConsumerGroup),
		LogFormat:     envOr("LOG_FORMAT", "logfmt"),
		LogDebug:      strings.EqualFold(os.Getenv("LOG_LEVEL"), "debug"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
	}

	var err error
	if cfg.MaxBatchSize, err = intEnv("MAX_BATCH_SIZE", contracts.DefaultMaxBatchSize); err != nil {
		return nil, err
	}
	if cfg.Partitions, err = intEnv("PARTITIONS", 3); err != nil {
		return nil, err
	}
	if cfg.PollTimeout, err = durationEnv("POLL_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.PublishTimeout, err = durationEnv("PUBLISH_TIMEOUT", 120*time.Second); err != nil {
		return nil, err
	}
	if cfg.RetryBackoffMin, err = durationEnv("RETRY_BACKOFF_MIN", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.RetryBackoffMax, err = durationEnv("RETRY_BACKOFF_MAX", 10*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and the driver name.
func (c *Config) Validate() error {
	if c.MaxBatchSize < 1 {
		return fmt.Errorf("MAX_BATCH_SIZE must be at least 1, got %d", c.MaxBatchSize)
	}
	if c.Partitions < 1 {
		return fmt.Errorf("PARTITIONS must be at least 1, got %d", c.Partitions)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("POLL_TIMEOUT must be positive, got %s", c.PollTimeout)
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("PUBLISH_TIMEOUT must be positive, got %s", c.PublishTimeout)
	}
	if c.RetryBackoffMin <= 0 || c.RetryBackoffMax < c.RetryBackoffMin {
		return fmt.Errorf("invalid retry backoff range %s..%s", c.RetryBackoffMin, c.RetryBackoffMax)
	}
	switch c.BrokerDriver {
	case DriverFranz, DriverKafkaGo:
	default:
		return fmt.Errorf("unknown BROKER_DRIVER %q (want %q or %q)", c.BrokerDriver, DriverFranz, DriverKafkaGo)
	}
	return nil
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intEnv(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", name, err)
	}
	return v, nil
}
