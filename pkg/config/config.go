package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"PropRecon/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logging"`
	Storage struct {
		// Backend selects where listing snapshots are read from:
		// "clickhouse" or "memory" (yaml fixture files, for demos/tests).
		Backend       string `yaml:"backend" default:"clickhouse"`
		ObservedFile  string `yaml:"observed_file"`
		CanonicalFile string `yaml:"canonical_file"`
	} `yaml:"storage"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"proprecon"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		ObservedTable    string        `yaml:"observed_table" default:"observed_listings"`
		CanonicalTable   string        `yaml:"canonical_table" default:"canonical_listings"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Signals struct {
		// Path is the SQLite database holding the outstanding signal set.
		Path string `yaml:"path" default:"data/signals.db"`
		// ReplaceOnRun selects full clear-and-regenerate instead of
		// fingerprint reconciliation (which preserves governance status).
		ReplaceOnRun bool `yaml:"replace_on_run"`
	} `yaml:"signals"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"recon.signals"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"1s"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		LockTTL  time.Duration `yaml:"lock_ttl" default:"5m"`
	} `yaml:"redis"`
	Recon struct {
		PriceDeltaThreshold     float64       `yaml:"price_delta_threshold" default:"0.15"`
		WarningPercent          int           `yaml:"warning_percent" default:"30"`
		DuplicateMinTokens      int           `yaml:"duplicate_min_shared_tokens" default:"2"`
		DuplicateMinTokenLength int           `yaml:"duplicate_min_token_length" default:"3"`
		NewListingWindow        time.Duration `yaml:"new_listing_window" default:"168h"`
		NewListingCap           int           `yaml:"new_listing_cap" default:"5"`
		PriceScanLimit          int           `yaml:"price_scan_limit" default:"10"`
		PriceCap                int           `yaml:"price_cap" default:"4"`
		DuplicateScanLimit      int           `yaml:"duplicate_scan_limit" default:"8"`
		DuplicateCap            int           `yaml:"duplicate_cap" default:"3"`
		SyntheticFallback       *bool         `yaml:"synthetic_fallback" default:"true"`
		SyntheticPricePairs     int           `yaml:"synthetic_price_pairs" default:"3"`
		SyntheticDuplicatePairs int           `yaml:"synthetic_duplicate_pairs" default:"2"`
	} `yaml:"recon"`
	Scheduler struct {
		Enabled  bool          `yaml:"enabled"`
		Interval time.Duration `yaml:"interval" default:"1h"`
	} `yaml:"scheduler"`
}

// SyntheticEnabled reports whether the synthetic fallback passes are on.
// Modelled as a pointer so an explicit `false` survives default application.
func (c *Config) SyntheticEnabled() bool {
	return c.Recon.SyntheticFallback == nil || *c.Recon.SyntheticFallback
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
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

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

	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("SIGNALS_DB"); v != "" {
		c.Signals.Path = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Storage.Backend {
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for the clickhouse backend")
		}
	case "memory":
		if c.Storage.ObservedFile == "" || c.Storage.CanonicalFile == "" {
			return fmt.Errorf("storage.observed_file and storage.canonical_file are required for the memory backend")
		}
	default:
		return fmt.Errorf("storage.backend must be 'clickhouse' or 'memory', got '%s'", c.Storage.Backend)
	}
	if c.Signals.Path == "" {
		return fmt.Errorf("signals.path is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Recon.PriceDeltaThreshold <= 0 || c.Recon.PriceDeltaThreshold >= 1 {
		return fmt.Errorf("recon.price_delta_threshold must be in (0, 1), got %v", c.Recon.PriceDeltaThreshold)
	}
	if c.Recon.DuplicateMinTokens < 1 {
		return fmt.Errorf("recon.duplicate_min_shared_tokens must be at least 1")
	}
	return nil
}
