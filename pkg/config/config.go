package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type SourceThresholds struct {
	Soft time.Duration `yaml:"soft"`
	Hard time.Duration `yaml:"hard"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Sources struct {
		Allowed   []string                    `yaml:"allowed"`
		Staleness SourceThresholds            `yaml:"staleness"`
		Overrides map[string]SourceThresholds `yaml:"overrides"`
	} `yaml:"sources"`
	Confluence struct {
		MergeTolerance  float64 `yaml:"merge_tolerance"`
		ConfidenceFloor float64 `yaml:"confidence_floor"`
		BiasWeight      float64 `yaml:"bias_weight"`
		ProximityWeight float64 `yaml:"proximity_weight"`
		StalePenalty    float64 `yaml:"stale_penalty"`
		SingleSourceCap float64 `yaml:"single_source_cap"`
	} `yaml:"confluence"`
	Ingest struct {
		SourceRate  float64       `yaml:"source_rate"`
		SourceBurst int           `yaml:"source_burst"`
		BufferSize  int           `yaml:"buffer_size"`
		FlushEvery  time.Duration `yaml:"flush_every"`
	} `yaml:"ingest"`
	Extraction struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url"`
		Channels       []string      `yaml:"channels"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"extraction"`
	Archive struct {
		Backend  string `yaml:"backend"` // none, kafka, clickhouse
		UseQueue bool   `yaml:"use_queue"`
		Table    string `yaml:"table"`
	} `yaml:"archive"`
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
			Enabled    bool          `yaml:"enabled"`
			Topic      string        `yaml:"topic"`
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
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Snapshot struct {
		Enabled  bool          `yaml:"enabled"`
		Key      string        `yaml:"key"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"snapshot"`
	ResponseCache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"response_cache"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("EXTRACTION_API_KEY"); v != "" {
		c.Extraction.APIKey = v
	}
	if v := os.Getenv("EXTRACTION_CHANNELS"); v != "" {
		c.Extraction.Channels = strings.Split(v, ",")
	}
	if v := os.Getenv("ARCHIVE_BACKEND"); v != "" {
		c.Archive.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Archive.Backend {
	case "", "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("archive.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Archive.Backend)
	}
	if len(c.Sources.Allowed) == 0 {
		return fmt.Errorf("sources.allowed cannot be empty")
	}
	if c.Sources.Staleness.Soft <= 0 || c.Sources.Staleness.Hard <= 0 {
		return fmt.Errorf("sources.staleness soft and hard must be positive")
	}
	if c.Sources.Staleness.Hard < c.Sources.Staleness.Soft {
		return fmt.Errorf("sources.staleness.hard must be >= soft")
	}
	for name, th := range c.Sources.Overrides {
		if th.Soft <= 0 || th.Hard <= 0 || th.Hard < th.Soft {
			return fmt.Errorf("sources.overrides.%s thresholds are invalid", name)
		}
	}
	if c.Confluence.MergeTolerance < 0 || c.Confluence.MergeTolerance >= 1 {
		return fmt.Errorf("confluence.merge_tolerance must be in [0, 1)")
	}
	if c.Extraction.Enabled && c.Extraction.APIKey == "" {
		return fmt.Errorf("extraction.api_key is required when extraction is enabled")
	}
	if c.Snapshot.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("snapshot requires redis to be enabled")
	}
	if c.Archive.UseQueue && !c.Redis.Enabled {
		return fmt.Errorf("archive.use_queue requires redis to be enabled")
	}
	return nil
}
