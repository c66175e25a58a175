package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "caseintake/pkg/platform/strings"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Server        Server
	Log           Log
	Database      Database
	Redis         RedisConfig
	Kafka         Kafka
	RecordService RecordService
	Form          FormLayout
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type Log struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Database configures the case store. An empty URL selects the in-memory store.
type Database struct {
	URL          string
	MaxOpenConns int
}

// RedisConfig configures the record cache. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// Kafka configures case event publishing. No brokers keeps events in memory.
type Kafka struct {
	Brokers     []string
	Topic       string
	Partitions  int32
	Replication int16
}

// RecordService locates the remote record API.
type RecordService struct {
	URL     string
	Token   string
	Timeout time.Duration
}

// FromEnv builds the configuration from environment variables so main stays
// lean. FORM_LAYOUT_FILE, when set, names a YAML file merged over the default
// form layout.
func FromEnv() (*Config, error) {
	var errs []error
	env := envReader{errs: &errs}

	cfg := &Config{
		Server: Server{
			Addr:            env.str("CASEINTAKE_ADDR", ":8080"),
			ShutdownTimeout: env.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: Log{
			Level:  strings.ToLower(env.str("LOG_LEVEL", "info")),
			Format: strings.ToLower(env.str("LOG_FORMAT", "json")),
		},
		Database: Database{
			URL:          env.str("DATABASE_URL", ""),
			MaxOpenConns: env.integer("DATABASE_MAX_OPEN_CONNS", 10),
		},
		Redis: RedisConfig{
			URL:          env.str("REDIS_URL", ""),
			PoolSize:     env.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: env.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  env.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  env.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: env.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     env.duration("RECORD_CACHE_TTL", time.Minute),
		},
		Kafka: Kafka{
			Brokers:     pstrings.SplitList(env.str("KAFKA_BROKERS", "")),
			Topic:       env.str("KAFKA_TOPIC", "caseintake.cases"),
			Partitions:  int32(env.integer("KAFKA_TOPIC_PARTITIONS", 3)),
			Replication: int16(env.integer("KAFKA_TOPIC_REPLICATION", 1)),
		},
		RecordService: RecordService{
			URL:     env.str("RECORD_SERVICE_URL", ""),
			Token:   env.str("RECORD_SERVICE_TOKEN", ""),
			Timeout: env.duration("RECORD_SERVICE_TIMEOUT", 30*time.Second),
		},
		Form: DefaultFormLayout(),
	}

	if path := env.str("FORM_LAYOUT_FILE", ""); path != "" {
		layout, err := LoadFormLayout(path)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.Form = layout
		}
	}
	if cfg.RecordService.URL == "" {
		errs = append(errs, errors.New("RECORD_SERVICE_URL is required"))
	}
	if err := cfg.Form.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

type envReader struct {
	errs *[]error
}

func (e envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e envReader) integer(key string, def int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
