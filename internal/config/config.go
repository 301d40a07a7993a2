// Package config loads service settings from the environment and an optional
// .env file. Every key can be set as STOCK_<SECTION>_<NAME>, for example
// STOCK_MONGODB_URI.
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/cobrify/stock-service/internal/infrastructure/cache"
	"github.com/cobrify/stock-service/internal/infrastructure/invoice"
	"github.com/cobrify/stock-service/pkg/kafka"
	"github.com/cobrify/stock-service/pkg/logging"
	"github.com/cobrify/stock-service/pkg/mongodb"
	"github.com/cobrify/stock-service/pkg/tracing"
)

const envPrefix = "STOCK"

// Config is the full service configuration
type Config struct {
	ServiceName string
	Environment string
	Version     string
	LogLevel    logging.LogLevel

	HTTP    HTTPConfig
	MongoDB *mongodb.Config
	Kafka   *kafka.Config
	Redis   cache.Config
	Tracing *tracing.Config
	Invoice invoice.Config
	Offline OfflineConfig
	Outbox  OutboxConfig
}

// HTTPConfig holds API server settings
type HTTPConfig struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	// CORSOrigins lists allowed browser origins. Empty or "*" allows any.
	CORSOrigins []string
}

// OfflineConfig holds the POS agent settings
type OfflineConfig struct {
	DBPath        string
	SyncDebounce  time.Duration
	ProbeInterval time.Duration
}

// OutboxConfig holds the outbox relay settings
type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

var (
	once     sync.Once
	instance *Config
)

// Load reads the configuration once per process
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		instance = FromViper(newViper())
	})
	return instance
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "stock-service")
	v.SetDefault("environment", "development")
	v.SetDefault("version", "dev")
	v.SetDefault("log.level", "info")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.request_timeout", 30*time.Second)
	v.SetDefault("http.cors_origins", "*")

	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "cobrify")
	v.SetDefault("mongodb.connect_timeout", 10*time.Second)
	v.SetDefault("mongodb.max_pool_size", 100)
	v.SetDefault("mongodb.min_pool_size", 10)
	v.SetDefault("mongodb.replica_set", "")

	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.consumer_group", "stock-service")
	v.SetDefault("kafka.client_id", "stock-service")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("invoice.base_url", "http://localhost:3000/api")
	v.SetDefault("invoice.timeout", 30*time.Second)

	v.SetDefault("offline.db_path", "offline_sales.db")
	v.SetDefault("offline.sync_debounce", 2*time.Second)
	v.SetDefault("offline.probe_interval", 10*time.Second)

	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.batch_size", 100)
}

// FromViper builds a Config from v. Defaults must already be set.
func FromViper(v *viper.Viper) *Config {
	serviceName := v.GetString("service.name")

	kafkaCfg := kafka.DefaultConfig()
	kafkaCfg.Brokers = splitList(v.GetString("kafka.brokers"))
	kafkaCfg.ConsumerGroup = v.GetString("kafka.consumer_group")
	kafkaCfg.ClientID = v.GetString("kafka.client_id")

	tracingCfg := tracing.DefaultConfig(serviceName)
	tracingCfg.Enabled = v.GetBool("tracing.enabled")
	tracingCfg.OTLPEndpoint = v.GetString("tracing.endpoint")
	tracingCfg.SampleRate = v.GetFloat64("tracing.sample_rate")
	tracingCfg.Environment = v.GetString("environment")
	tracingCfg.ServiceVersion = v.GetString("version")

	return &Config{
		ServiceName: serviceName,
		Environment: v.GetString("environment"),
		Version:     v.GetString("version"),
		LogLevel:    logging.ParseLevel(v.GetString("log.level")),
		HTTP: HTTPConfig{
			Addr:           v.GetString("http.addr"),
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			RequestTimeout: v.GetDuration("http.request_timeout"),
			CORSOrigins:    splitList(v.GetString("http.cors_origins")),
		},
		MongoDB: &mongodb.Config{
			URI:            v.GetString("mongodb.uri"),
			Database:       v.GetString("mongodb.database"),
			ConnectTimeout: v.GetDuration("mongodb.connect_timeout"),
			MaxPoolSize:    v.GetUint64("mongodb.max_pool_size"),
			MinPoolSize:    v.GetUint64("mongodb.min_pool_size"),
			ReplicaSet:     v.GetString("mongodb.replica_set"),
		},
		Kafka: kafkaCfg,
		Redis: cache.Config{
			URL:      v.GetString("redis.url"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Tracing: tracingCfg,
		Invoice: invoice.Config{
			BaseURL: v.GetString("invoice.base_url"),
			Timeout: v.GetDuration("invoice.timeout"),
		},
		Offline: OfflineConfig{
			DBPath:        v.GetString("offline.db_path"),
			SyncDebounce:  v.GetDuration("offline.sync_debounce"),
			ProbeInterval: v.GetDuration("offline.probe_interval"),
		},
		Outbox: OutboxConfig{
			PollInterval: v.GetDuration("outbox.poll_interval"),
			BatchSize:    v.GetInt("outbox.batch_size"),
		},
	}
}

// LoggingConfig returns the logger settings for this service
func (c *Config) LoggingConfig() *logging.Config {
	cfg := logging.DefaultConfig(c.ServiceName)
	cfg.Level = c.LogLevel
	cfg.Environment = c.Environment
	cfg.Version = c.Version
	return cfg
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
