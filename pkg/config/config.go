package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"TradeInfo/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	// zero-valued fields are overwritten by defaults, so switches are phrased as opt-outs
	Metrics struct {
		Disabled bool `yaml:"disabled"`
	} `yaml:"metrics"`
	Storage struct {
		// Type is one of memory, file, sqlite, redis or layered.
		Type       string        `yaml:"type" default:"file"`
		Dir        string        `yaml:"dir" default:"data"`
		SQLitePath string        `yaml:"sqlite_path" default:"data/tradeinfo.db"`
		Key        string        `yaml:"key" default:"trade-info-v3-storage"`
		Timeout    time.Duration `yaml:"timeout" default:"5s"`
		Redis      struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			PoolSize int    `yaml:"pool_size" default:"10"`
			Prefix   string `yaml:"prefix" default:"tradeinfo"`
		} `yaml:"redis"`
		MemoryMaxSize int `yaml:"memory_max_size" default:"64"`
	} `yaml:"storage"`
	StockAPI struct {
		BaseURL         string        `yaml:"base_url" default:"http://localhost:8000/api"`
		Timeout         time.Duration `yaml:"timeout" default:"10s"`
		RefreshInterval time.Duration `yaml:"refresh_interval" default:"1m"`
		CacheTTL        time.Duration `yaml:"cache_ttl" default:"15s"`
		RateBurst       float64       `yaml:"rate_burst" default:"10"`
		RatePerSec      float64       `yaml:"rate_per_sec" default:"5"`
	} `yaml:"stock_api"`
	ChangeFeed struct {
		// Backend is one of none, kafka or clickhouse.
		Backend      string        `yaml:"backend" default:"none"`
		BatchSize    int           `yaml:"batch_size" default:"50"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
		ClientID     string        `yaml:"client_id" default:"default"`
	} `yaml:"changefeed"`
	Kafka struct {
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"tradeinfo.watchlist.changes"`
		QuotesTopic  string        `yaml:"quotes_topic"`
		QuoteMaxAge  time.Duration `yaml:"quote_max_age" default:"30s"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"500ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID     string        `yaml:"group_id" default:"tradeinfo-quotes"`
			StartOffset string        `yaml:"start_offset" default:"latest"`
			Workers     int           `yaml:"workers" default:"4"`
			BufferSize  int           `yaml:"buffer_size" default:"256"`
			RetryMax    int           `yaml:"retry_max" default:"2"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"2s"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"tradeinfo"`
		Table            string        `yaml:"table" default:"watchlist_changes"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
}

// Load reads a YAML configuration file and fills unset fields with defaults.
// An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML, applies environment overrides and validates the result.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("TRADEINFO_STORAGE"); v != "" {
		c.Storage.Type = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, err := net.SplitHostPort(v)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("REDIS_ADDR port: %w", err)
		}
		c.Storage.Redis.Host, c.Storage.Redis.Port = host, p
	}
	if v := getenv("STOCK_API_URL"); v != "" {
		c.StockAPI.BaseURL = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("CHANGEFEED_BACKEND"); v != "" {
		c.ChangeFeed.Backend = v
	}
	return nil
}

// NeedsKafka reports whether any component talks to Kafka.
func (c *Config) NeedsKafka() bool {
	return c.ChangeFeed.Backend == "kafka" || c.Kafka.QuotesTopic != ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Storage.Type {
	case "memory", "file", "sqlite", "redis", "layered":
	default:
		return fmt.Errorf("storage.type must be memory, file, sqlite, redis or layered, got '%s'", c.Storage.Type)
	}
	if c.Storage.Type == "sqlite" && c.Storage.SQLitePath == "" {
		return fmt.Errorf("storage.sqlite_path is required for sqlite storage")
	}
	if c.Storage.Type == "file" && c.Storage.Dir == "" {
		return fmt.Errorf("storage.dir is required for file storage")
	}
	if c.Storage.Key == "" {
		return fmt.Errorf("storage.key is required")
	}
	switch c.ChangeFeed.Backend {
	case "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("changefeed.backend must be none, kafka or clickhouse, got '%s'", c.ChangeFeed.Backend)
	}
	if c.NeedsKafka() && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.ChangeFeed.Backend == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.StockAPI.BaseURL == "" {
		return fmt.Errorf("stock_api.base_url is required")
	}
	return nil
}
