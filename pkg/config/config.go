package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Log         struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		CORSOrigins     []string      `yaml:"cors_origins"`
		RateLimit       struct {
			Capacity     float64 `yaml:"capacity"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Pipeline struct {
		Concurrency     int                 `yaml:"concurrency"`
		RunTimeout      time.Duration       `yaml:"run_timeout"`
		MaxFollowups    int                 `yaml:"max_followups"`
		ObserverBuffer  int                 `yaml:"observer_buffer"`
		ObserverFlush   time.Duration       `yaml:"observer_flush"`
		FastOrdering    string              `yaml:"fast_ordering"`          // parallel | sequential | dependency
		DeepOrdering    string              `yaml:"comprehensive_ordering"` // parallel | sequential | dependency
		DriverDependsOn map[string][]string `yaml:"driver_depends_on"`
	} `yaml:"pipeline"`
	Research struct {
		BaseURL   string        `yaml:"base_url"`
		CriticURL string        `yaml:"critic_url"`
		Timeout   time.Duration `yaml:"timeout"`
		Attempts  int           `yaml:"attempts"`
	} `yaml:"research"`
	MarketData struct {
		Enabled bool          `yaml:"enabled"`
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
		Depth   int           `yaml:"depth"`
	} `yaml:"market_data"`
	Cache struct {
		Enabled    bool          `yaml:"enabled"`
		TTL        time.Duration `yaml:"ttl"`
		MemorySize int           `yaml:"memory_size"`
		Redis      struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled       bool     `yaml:"enabled"`
		Brokers       []string `yaml:"brokers"`
		RequiredAcks  int      `yaml:"required_acks"`
		Compression   string   `yaml:"compression"`
		ProgressTopic string   `yaml:"progress_topic"`
		CardsTopic    string   `yaml:"cards_topic"`
		RequestsTopic string   `yaml:"requests_topic"`
		LogsTopic     string   `yaml:"logs_topic"`
		Producer      struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
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
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, fills defaults and validates.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads an optional .env file and the YAML config, then applies
// environment overrides before defaults and validation.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("RESEARCH_URL"); v != "" {
		c.Research.BaseURL = v
	}
	if v := os.Getenv("CRITIC_URL"); v != "" {
		c.Research.CriticURL = v
	}
	if v := os.Getenv("MARKET_DATA_URL"); v != "" {
		c.MarketData.BaseURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Minute
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Server.RateLimit.Capacity == 0 {
		c.Server.RateLimit.Capacity = 5
	}
	if c.Server.RateLimit.RefillPerSec == 0 {
		c.Server.RateLimit.RefillPerSec = 0.2
	}
	if c.Pipeline.Concurrency == 0 {
		c.Pipeline.Concurrency = 4
	}
	if c.Pipeline.MaxFollowups == 0 {
		c.Pipeline.MaxFollowups = 5
	}
	if c.Pipeline.FastOrdering == "" {
		c.Pipeline.FastOrdering = "parallel"
	}
	if c.Pipeline.DeepOrdering == "" {
		c.Pipeline.DeepOrdering = "dependency"
	}
	if c.Research.Timeout == 0 {
		c.Research.Timeout = 90 * time.Second
	}
	if c.Research.Attempts == 0 {
		c.Research.Attempts = 2
	}
	if c.Research.CriticURL == "" {
		c.Research.CriticURL = c.Research.BaseURL
	}
	if c.MarketData.Timeout == 0 {
		c.MarketData.Timeout = 10 * time.Second
	}
	if c.MarketData.Depth == 0 {
		c.MarketData.Depth = 20
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 10 * time.Minute
	}
	if c.Cache.MemorySize == 0 {
		c.Cache.MemorySize = 512
	}
	if c.Cache.Redis.Port == 0 {
		c.Cache.Redis.Port = 6379
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "foresight"
	}
	if c.Kafka.ProgressTopic == "" {
		c.Kafka.ProgressTopic = "forecast.progress"
	}
	if c.Kafka.CardsTopic == "" {
		c.Kafka.CardsTopic = "forecast.cards"
	}
	if c.Kafka.RequestsTopic == "" {
		c.Kafka.RequestsTopic = "forecast.requests"
	}
	if c.Kafka.LogsTopic == "" {
		c.Kafka.LogsTopic = "forecast.logs"
	}
	if c.Kafka.Consumer.GroupID == "" {
		c.Kafka.Consumer.GroupID = "foresight"
	}
	if c.ClickHouse.Database == "" {
		c.ClickHouse.Database = "foresight"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Research.BaseURL == "" {
		return fmt.Errorf("research.base_url is required")
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be >= 1, got %d", c.Pipeline.Concurrency)
	}
	for _, o := range []string{c.Pipeline.FastOrdering, c.Pipeline.DeepOrdering} {
		if o != "parallel" && o != "sequential" && o != "dependency" {
			return fmt.Errorf("pipeline ordering must be 'parallel', 'sequential' or 'dependency', got '%s'", o)
		}
	}
	if c.MarketData.Enabled && c.MarketData.BaseURL == "" {
		return fmt.Errorf("market_data.base_url is required when market_data is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Consumer.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("kafka.consumer requires kafka.enabled")
	}
	if c.Cache.Enabled && c.Cache.Redis.Host == "" {
		return fmt.Errorf("cache.redis.host is required when cache is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
