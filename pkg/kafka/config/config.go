package kafka_config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"slotkeeper/pkg/logger"
)

type Config struct {
	Brokers []string

	// DLQTopic receives messages that failed permanently. Empty disables it.
	DLQTopic string

	Producer ProducerConfig
	Consumer ConsumerConfig

	EnableMiddleware bool
}

type ProducerConfig struct {
	MaxAttempts  int
	BatchTimeout time.Duration
	RequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	Compression  string // "none", "gzip", "snappy", "lz4", "zstd"
	Async        bool
}

type ConsumerConfig struct {
	StartOffset       int64 // -1 = newest, -2 = oldest
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	CommitInterval    time.Duration
	HeartbeatInterval time.Duration
	SessionTimeout    time.Duration
	RebalanceTimeout  time.Duration
	MaxRetries        int
}

// Load reads the Kafka settings from the process environment.
func Load() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds and validates a Config from lookup. Values that do not
// parse fall back to their defaults.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	env := envReader{lookup: lookup}

	cfg := &Config{
		Brokers:  splitList(env.getStr(EnvKafkaBrokers, DefaultKafkaBrokers)),
		DLQTopic: env.getStr(EnvKafkaDLQTopic, DefaultDLQTopic),

		Producer: ProducerConfig{
			MaxAttempts:  env.getInt(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
			BatchTimeout: env.getDuration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
			RequireAcks:  env.getInt(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
			Compression:  strings.ToLower(env.getStr(EnvKafkaProducerCompression, DefaultProducerCompression)),
			Async:        env.getBool(EnvKafkaProducerAsync, DefaultProducerAsync),
		},

		Consumer: ConsumerConfig{
			StartOffset:       int64(env.getInt(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset)),
			MinBytes:          env.getInt(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes),
			MaxBytes:          env.getInt(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes),
			MaxWait:           env.getDuration(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait),
			CommitInterval:    env.getDuration(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval),
			HeartbeatInterval: env.getDuration(EnvKafkaConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval),
			SessionTimeout:    env.getDuration(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout),
			RebalanceTimeout:  env.getDuration(EnvKafkaConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout),
			MaxRetries:        env.getInt(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries),
		},

		EnableMiddleware: env.getBool(EnvKafkaEnableMiddleware, DefaultEnableMiddleware),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validCompressions = map[string]bool{"none": true, "gzip": true, "snappy": true, "lz4": true, "zstd": true}

// Validate reports every invalid setting at once.
func (cfg *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(len(cfg.Brokers) > 0, "at least one broker is required")
	for i, broker := range cfg.Brokers {
		check(broker != "", "broker %d is empty", i)
	}

	p := cfg.Producer
	check(p.MaxAttempts > 0, "producer max attempts must be positive, got %d", p.MaxAttempts)
	check(p.BatchTimeout > 0, "producer batch timeout must be positive, got %s", p.BatchTimeout)
	check(p.RequireAcks >= -1 && p.RequireAcks <= 1, "producer require acks must be -1, 0 or 1, got %d", p.RequireAcks)
	check(validCompressions[p.Compression], "producer compression %q is not supported", p.Compression)

	c := cfg.Consumer
	check(c.StartOffset >= -2, "consumer start offset must be -1 (newest), -2 (oldest) or >= 0, got %d", c.StartOffset)
	check(c.MinBytes > 0 && c.MinBytes <= c.MaxBytes, "consumer byte bounds must satisfy 0 < min <= max, got %d..%d", c.MinBytes, c.MaxBytes)
	check(c.MaxRetries >= 0, "consumer max retries cannot be negative, got %d", c.MaxRetries)
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"max wait", c.MaxWait},
		{"commit interval", c.CommitInterval},
		{"heartbeat interval", c.HeartbeatInterval},
		{"session timeout", c.SessionTimeout},
		{"rebalance timeout", c.RebalanceTimeout},
	} {
		check(d.value > 0, "consumer %s must be positive, got %s", d.name, d.value)
	}
	check(c.HeartbeatInterval < c.SessionTimeout, "consumer heartbeat interval must be shorter than the session timeout")

	if len(problems) > 0 {
		return fmt.Errorf("kafka configuration is invalid: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded",
		"brokers", cfg.Brokers,
		"dlq_topic", cfg.DLQTopic,
		"enable_middleware", cfg.EnableMiddleware,
	)
	log.Info("Kafka producer settings",
		"max_attempts", cfg.Producer.MaxAttempts,
		"batch_timeout", cfg.Producer.BatchTimeout,
		"require_acks", cfg.Producer.RequireAcks,
		"compression", cfg.Producer.Compression,
		"async", cfg.Producer.Async,
	)
	log.Info("Kafka consumer settings",
		"start_offset", cfg.Consumer.StartOffset,
		"max_wait", cfg.Consumer.MaxWait,
		"commit_interval", cfg.Consumer.CommitInterval,
		"session_timeout", cfg.Consumer.SessionTimeout,
		"max_retries", cfg.Consumer.MaxRetries,
	)
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

type envReader struct {
	lookup func(string) (string, bool)
}

func (e envReader) getStr(key, fallback string) string {
	if value, ok := e.lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func (e envReader) getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(e.getStr(key, "")); err == nil {
		return n
	}
	return fallback
}

func (e envReader) getBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(e.getStr(key, "")); err == nil {
		return b
	}
	return fallback
}

func (e envReader) getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(e.getStr(key, "")); err == nil {
		return d
	}
	return fallback
}
