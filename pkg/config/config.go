package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	applogger "FinRisk/pkg/logger"
)

const bandCount = 10

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required"`
	Server      ServerConfig     `yaml:"server"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Logging     applogger.Config `yaml:"logging"`
	Risk        RiskConfig       `yaml:"risk"`
	Cache       CacheConfig      `yaml:"cache"`
	RateLimit   RateLimitConfig  `yaml:"rate_limit"`
	Breaker     BreakerConfig    `yaml:"breaker"`
	Calibration Calibration      `yaml:"calibration"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	Redis       RedisConfig      `yaml:"redis"`
	Postgres    PostgresConfig   `yaml:"postgres"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	CORS            bool          `yaml:"cors" default:"true"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// RiskConfig holds the engine calibration limits and signal thresholds.
type RiskConfig struct {
	CoefMin           float64          `yaml:"coef_min" default:"1.0" validate:"gt=0"`
	CoefMax           float64          `yaml:"coef_max" default:"1.6" validate:"gtfield=CoefMin"`
	Thresholds        ThresholdsConfig `yaml:"thresholds"`
	DegradeGracefully bool             `yaml:"degrade_gracefully"`
	Workers           int              `yaml:"workers" default:"8" validate:"min=1,max=256"`
	PersistState      bool             `yaml:"persist_state" default:"true"`
	PublishScores     bool             `yaml:"publish_scores" default:"true"`
}

type ThresholdsConfig struct {
	StrongBuy float64 `yaml:"strong_buy" default:"80"`
	Buy       float64 `yaml:"buy" default:"60"`
	Neutral   float64 `yaml:"neutral" default:"40"`
	Sell      float64 `yaml:"sell" default:"20"`
}

type CacheConfig struct {
	BoundsTTL time.Duration `yaml:"bounds_ttl" default:"5m"`
	StateTTL  time.Duration `yaml:"state_ttl" default:"1m"`
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled" default:"true"`
	RPS     float64       `yaml:"rps" default:"20" validate:"gt=0"`
	Burst   int           `yaml:"burst" default:"40" validate:"min=1"`
	IdleTTL time.Duration `yaml:"idle_ttl" default:"10m"`
	MaxKeys int           `yaml:"max_keys" default:"10000" validate:"min=1"`
}

type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures" default:"5" validate:"min=1"`
	Interval    time.Duration `yaml:"interval" default:"60s"`
	Timeout     time.Duration `yaml:"timeout" default:"30s"`
}

// Calibration is the versioned set of per-symbol bounds and optional seed
// coefficients or day counts. It is loaded once and treated as read-only.
type Calibration struct {
	Version        string              `yaml:"version" default:"v1" validate:"required"`
	RebuildOnStart bool                `yaml:"rebuild_on_start" default:"true"`
	Symbols        []SymbolCalibration `yaml:"symbols" validate:"dive"`
}

type SymbolCalibration struct {
	Symbol       string    `yaml:"symbol" validate:"required"`
	MinPrice     float64   `yaml:"min_price" validate:"gt=0"`
	MaxPrice     float64   `yaml:"max_price" validate:"gtfield=MinPrice"`
	Epoch        string    `yaml:"epoch"`
	Coefficients []float64 `yaml:"coefficients" validate:"omitempty,len=10"`
	DaysSpent    []int     `yaml:"days_spent" validate:"omitempty,len=10,dive,min=0"`
	TotalDays    int       `yaml:"total_days" validate:"min=0"`
}

type KafkaConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Brokers           []string `yaml:"brokers"`
	ScoreTopic        string   `yaml:"score_topic" default:"risk.scores"`
	DistributionTopic string   `yaml:"distribution_topic" default:"band_distribution.updated"`
	RequiredAcks      int      `yaml:"required_acks" default:"-1"`
	Compression       string   `yaml:"compression" default:"snappy" validate:"oneof=gzip snappy lz4 zstd"`
	Producer          struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		Async        bool          `yaml:"async"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"finrisk-calibration"`
		Workers    int           `yaml:"workers" default:"2"`
		BufferSize int           `yaml:"buffer_size" default:"64"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
		DLQTopic   string        `yaml:"dlq_topic"`
		MinBytes   int           `yaml:"min_bytes" default:"1"`
		MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled           bool          `yaml:"enabled"`
	Host              string        `yaml:"host" default:"localhost"`
	Port              int           `yaml:"port" default:"9000"`
	Database          string        `yaml:"database" default:"finrisk"`
	User              string        `yaml:"user" default:"default"`
	Password          string        `yaml:"password"`
	UseHTTP           bool          `yaml:"use_http"`
	DialTimeout       time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout       time.Duration `yaml:"read_timeout" default:"10s"`
	MaxExecutionTime  time.Duration `yaml:"max_execution_time" default:"60s"`
	DistributionTable string        `yaml:"distribution_table" default:"band_days"`
	PriceTable        string        `yaml:"price_table" default:"prices_latest"`
}

type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr" default:"localhost:6379"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix" default:"finrisk:state:"`
}

type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	URL             string        `yaml:"url"`
	MaxConns        int32         `yaml:"max_conns" default:"10"`
	MinConns        int32         `yaml:"min_conns" default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" default:"30m"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" default:"5m"`
	Migrate         bool          `yaml:"migrate" default:"true"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse applies defaults, decodes b over them and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
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
	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("RISK_DEGRADE"); v != "" {
		degrade, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RISK_DEGRADE: %w", err)
		}
		c.Risk.DegradeGracefully = degrade
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := getenv("POSTGRES_URL"); v != "" {
		c.Postgres.URL = v
		c.Postgres.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	t := c.Risk.Thresholds
	if !(t.StrongBuy > t.Buy && t.Buy > t.Neutral && t.Neutral > t.Sell) {
		return fmt.Errorf("risk.thresholds must strictly descend, got %g/%g/%g/%g", t.StrongBuy, t.Buy, t.Neutral, t.Sell)
	}

	seen := make(map[string]struct{}, len(c.Calibration.Symbols))
	for _, s := range c.Calibration.Symbols {
		if _, dup := seen[s.Symbol]; dup {
			return fmt.Errorf("calibration.symbols: duplicate symbol %q", s.Symbol)
		}
		seen[s.Symbol] = struct{}{}
		if len(s.DaysSpent) == bandCount && s.TotalDays == 0 {
			return fmt.Errorf("calibration.symbols[%s]: total_days is required with days_spent", s.Symbol)
		}
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Postgres.Enabled && c.Postgres.URL == "" {
		return errors.New("postgres.url is required when postgres is enabled")
	}
	return nil
}

// SymbolNames lists the calibrated symbols in file order.
func (c Calibration) SymbolNames() []string {
	out := make([]string, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		out = append(out, s.Symbol)
	}
	return out
}

// Lookup returns the calibration entry of symbol.
func (c Calibration) Lookup(symbol string) (SymbolCalibration, bool) {
	for _, s := range c.Symbols {
		if s.Symbol == symbol {
			return s, true
		}
	}
	return SymbolCalibration{}, false
}
