package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID     string        `yaml:"group_id"`
			OffsetReset string        `yaml:"auto_offset_reset" validate:"omitempty,oneof=earliest latest"`
			Workers     int           `yaml:"workers"`
			BufferSize  int           `yaml:"buffer_size"`
			RetryMax    int           `yaml:"retry_max"`
			BackoffMin  time.Duration `yaml:"backoff_min"`
			BackoffMax  time.Duration `yaml:"backoff_max"`
			DLQTopic    string        `yaml:"dlq_topic"`
			MinBytes    int           `yaml:"min_bytes"`
			MaxBytes    int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Feed struct {
		BaseURL       string        `yaml:"base_url"`
		APIKey        string        `yaml:"api_key"`
		VsCurrency    string        `yaml:"vs_currency"`
		PerPage       int           `yaml:"per_page"`
		Timeout       time.Duration `yaml:"timeout"`
		RateBurst     float64       `yaml:"rate_burst"`
		RatePerSecond float64       `yaml:"rate_per_second"`
		CacheTTL      time.Duration `yaml:"cache_ttl"`
	} `yaml:"feed"`
	Stream struct {
		URL            string        `yaml:"url"`
		Symbols        []string      `yaml:"symbols"`
		Timeframe      string        `yaml:"timeframe"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"stream"`
	Simulator struct {
		InitialBalance float64       `yaml:"initial_balance"`
		FundingRate    float64       `yaml:"funding_rate"`
		StateBackend   string        `yaml:"state_backend"`
		StateKey       string        `yaml:"state_key"`
		Restore        bool          `yaml:"restore"`
		SnapshotEvery  time.Duration `yaml:"snapshot_every"`
	} `yaml:"simulator"`
	Analyzer struct {
		MinCandles int           `yaml:"min_candles"`
		SignalTTL  time.Duration `yaml:"signal_ttl"`
		Timeframe  string        `yaml:"timeframe"`
		ScanLimit  int           `yaml:"scan_limit"`
	} `yaml:"analyzer"`
	Scheduler struct {
		MarketRefreshEvery time.Duration `yaml:"market_refresh_every"`
		ScanEvery          time.Duration `yaml:"scan_every"`
		FundingEvery       time.Duration `yaml:"funding_every"`
	} `yaml:"scheduler"`
	Queue struct {
		Workers    int           `yaml:"workers"`
		QueueSize  int           `yaml:"queue_size"`
		RetryLimit int           `yaml:"retry_limit"`
		RetryDelay time.Duration `yaml:"retry_delay"`
	} `yaml:"queue"`
}

// Load parses the YAML file at path and validates the result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c := new(Config)
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads the YAML file, then lets environment variables
// override the deployment-specific fields.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	override(&c.Feed.APIKey, "COINGECKO_API_KEY")
	override(&c.Backend.Type, "BACKEND")
	override(&c.Kafka.Topic, "KAFKA_TOPIC")
	override(&c.ClickHouse.Host, "CLICKHOUSE_HOST")
	override(&c.Redis.Host, "REDIS_HOST")
	overrideList(&c.Stream.Symbols, "SYMBOLS")
	overrideList(&c.Kafka.Brokers, "KAFKA_BROKERS")
	return c, nil
}

func override(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func overrideList(dst *[]string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = strings.Split(v, ",")
	}
}

// Validate rejects configurations the simulator cannot start with.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Backend.Type {
	case "kafka", "clickhouse", "none":
	case "":
		return fmt.Errorf("backend.type is required")
	default:
		return fmt.Errorf("backend.type must be 'kafka', 'clickhouse' or 'none', got '%s'", c.Backend.Type)
	}
	if len(c.Stream.Symbols) == 0 {
		return fmt.Errorf("stream.symbols cannot be empty")
	}
	switch c.Simulator.StateBackend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("simulator.state_backend must be 'memory' or 'redis', got '%s'", c.Simulator.StateBackend)
	}
	return nil
}
