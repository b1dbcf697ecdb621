package kafka

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvKafkaEnabled      = "KAFKA_ENABLED"
	EnvKafkaBrokers      = "KAFKA_BROKERS"
	EnvKafkaTopic        = "KAFKA_TOPIC"
	EnvKafkaMaxAttempts  = "KAFKA_PRODUCER_MAX_ATTEMPTS"
	EnvKafkaBatchTimeout = "KAFKA_PRODUCER_BATCH_TIMEOUT"
	EnvKafkaRequireAcks  = "KAFKA_PRODUCER_REQUIRE_ACKS"
	EnvKafkaCompression  = "KAFKA_PRODUCER_COMPRESSION"
	EnvKafkaAsync        = "KAFKA_PRODUCER_ASYNC"
	EnvKafkaWriteTimeout = "KAFKA_PRODUCER_WRITE_TIMEOUT"
)

const (
	DefaultEnabled      = false
	DefaultBrokers      = "localhost:9092"
	DefaultTopic        = "reservations"
	DefaultMaxAttempts  = 3
	DefaultBatchTimeout = 10 * time.Millisecond
	DefaultRequireAcks  = -1
	DefaultCompression  = "snappy"
	DefaultAsync        = false
	DefaultWriteTimeout = 5 * time.Second
)

// Config holds producer settings. Enabled=false means events are not sent.
type Config struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	MaxAttempts  int
	BatchTimeout time.Duration
	RequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	Compression  string // "none", "gzip", "snappy", "lz4", "zstd"
	Async        bool
	WriteTimeout time.Duration
}

func LoadConfig() *Config {
	var brokers []string
	for _, b := range strings.Split(getEnvStr(EnvKafkaBrokers, DefaultBrokers), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &Config{
		Enabled:      getEnvBool(EnvKafkaEnabled, DefaultEnabled),
		Brokers:      brokers,
		Topic:        getEnvStr(EnvKafkaTopic, DefaultTopic),
		MaxAttempts:  getEnvInt(EnvKafkaMaxAttempts, DefaultMaxAttempts),
		BatchTimeout: getEnvDuration(EnvKafkaBatchTimeout, DefaultBatchTimeout),
		RequireAcks:  getEnvInt(EnvKafkaRequireAcks, DefaultRequireAcks),
		Compression:  getEnvStr(EnvKafkaCompression, DefaultCompression),
		Async:        getEnvBool(EnvKafkaAsync, DefaultAsync),
		WriteTimeout: getEnvDuration(EnvKafkaWriteTimeout, DefaultWriteTimeout),
	}
}

// Validate only checks producer settings when the producer is enabled.
func (cfg *Config) Validate() error {
	if !cfg.Enabled {
		return nil
	}

	var errors []string
	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		errors = append(errors, "Kafka topic cannot be empty")
	}
	if cfg.MaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerMaxAttempts must be positive, got: %d", cfg.MaxAttempts))
	}
	if cfg.BatchTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerBatchTimeout must be positive, got: %s", cfg.BatchTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ProducerWriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	switch cfg.Compression {
	case "none", "gzip", "snappy", "lz4", "zstd":
	default:
		errors = append(errors, fmt.Sprintf("ProducerCompression must be one of [none, gzip, snappy, lz4, zstd], got: %s", cfg.Compression))
	}
	if cfg.RequireAcks < -1 || cfg.RequireAcks > 1 {
		errors = append(errors, fmt.Sprintf("ProducerRequireAcks must be -1, 0, or 1, got: %d", cfg.RequireAcks))
	}

	if len(errors) > 0 {
		errMsg := "Kafka configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}
	return nil
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
