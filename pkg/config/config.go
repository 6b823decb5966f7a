package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"CandleCast/pkg/util"
)

// Stage names a pipeline process.
type Stage string

const (
	StageCollector Stage = "collector"
	StageAnalyst   Stage = "analyst"
	StageAdvisor   Stage = "advisor"
)

// ParseStage maps a command line value onto a Stage.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageCollector, StageAnalyst, StageAdvisor:
		return Stage(s), nil
	}
	return "", fmt.Errorf("unknown stage %q (want collector, analyst or advisor)", s)
}

// StageConfig holds the per-process settings of one stage. Address is the
// topic the stage receives on; Seed is its stable identity on the bus.
type StageConfig struct {
	Address    string `yaml:"address"`
	Seed       string `yaml:"seed"`
	Port       int    `yaml:"port" validate:"gte=0,lte=65535"`
	OutputFile string `yaml:"output_file"`
}

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"40s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"5s"`
	} `yaml:"server"`
	Timeouts struct {
		// External bounds every call leaving the process (exchange, narrative, bus).
		External time.Duration `yaml:"external" default:"30s" validate:"gt=0"`
	} `yaml:"timeouts"`
	Kafka struct {
		Brokers      []string `yaml:"brokers" default:"[\"localhost:9092\"]" validate:"required,min=1"`
		FailureTopic string   `yaml:"failure_topic" default:"candlecast.failures"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
		Consumer struct {
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"200ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic    string        `yaml:"dlq_topic" default:"candlecast.dlq"`
			MinBytes    int           `yaml:"min_bytes" default:"1"`
			MaxBytes    int           `yaml:"max_bytes" default:"10485760"`
			StartOffset string        `yaml:"start_offset" default:"earliest" validate:"oneof=earliest latest"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Collector struct {
		StageConfig `yaml:",inline"`
		Headless    bool `yaml:"headless"`
		Exchange    struct {
			URL      string `yaml:"url" default:"https://api.binance.com/api/v3/klines" validate:"url"`
			Symbol   string `yaml:"symbol" default:"BTCUSDT"`
			Interval string `yaml:"interval" default:"4h"`
			Limit    int    `yaml:"limit" default:"1500" validate:"gte=1,lte=1500"`
		} `yaml:"exchange"`
		// CollectPerMinute caps HTTP-triggered collections.
		CollectPerMinute int `yaml:"collect_per_minute" default:"6"`
	} `yaml:"collector"`
	Analyst struct {
		StageConfig `yaml:",inline"`
	} `yaml:"analyst"`
	Advisor struct {
		StageConfig `yaml:",inline"`
		Narrative   struct {
			URL           string `yaml:"url" default:"https://api.asi1.ai/v1/chat/completions" validate:"url"`
			APIKey        string `yaml:"api_key"`
			Model         string `yaml:"model" default:"asi1-mini"`
			SystemPrompt  string `yaml:"system_prompt" default:"You are a professional crypto trader."`
			RecentCandles int    `yaml:"recent_candles" default:"12" validate:"gte=0"`
		} `yaml:"narrative"`
	} `yaml:"advisor"`
	Redis struct {
		Enabled  bool          `yaml:"enabled"`
		Addr     string        `yaml:"addr" default:"localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Prefix   string        `yaml:"prefix" default:"candlecast"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"candlecast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Load reads and parses a YAML configuration file. A missing file is not an
// error: every key has a default or an environment override.
func Load(path string) (*Config, error) {
	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, and then overrides
// with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := parse(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

func parse(path string) (*Config, error) {
	var c Config
	if path == "" {
		return &c, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) finish() error {
	if err := defaults.Set(c); err != nil {
		return fmt.Errorf("apply defaults: %w", err)
	}
	c.setStageDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	return nil
}

func (c *Config) setStageDefaults() {
	fill := func(s *StageConfig, seed string, port int, out string) {
		if s.Seed == "" {
			s.Seed = seed
		}
		if s.Port == 0 {
			s.Port = port
		}
		if s.OutputFile == "" {
			s.OutputFile = out
		}
	}
	fill(&c.Collector.StageConfig, "candlecast-collector", 8000, "sent_to_analyst.json")
	fill(&c.Analyst.StageConfig, "candlecast-analyst", 8001, "sent_to_advisor.json")
	fill(&c.Advisor.StageConfig, "candlecast-advisor", 8002, "advisor_output.txt")
}

func (c *Config) applyEnv() {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		*dst = util.ParseIntDefault(os.Getenv(key), *dst)
	}

	str("ANALYST_AGENT_ADDRESS", &c.Analyst.Address)
	str("ADVISOR_AGENT_ADDRESS", &c.Advisor.Address)

	str("COLLECTOR_AGENT_SEED", &c.Collector.Seed)
	str("ANALYST_AGENT_SEED", &c.Analyst.Seed)
	str("ADVISOR_AGENT_SEED", &c.Advisor.Seed)

	num("COLLECTOR_PORT", &c.Collector.Port)
	num("ANALYST_PORT", &c.Analyst.Port)
	num("ADVISOR_PORT", &c.Advisor.Port)

	str("COLLECTOR_OUTPUT_FILE", &c.Collector.OutputFile)
	str("ANALYST_OUTPUT_FILE", &c.Analyst.OutputFile)
	str("ADVISOR_OUTPUT_FILE", &c.Advisor.OutputFile)

	str("ASI_API_KEY", &c.Advisor.Narrative.APIKey)
	str("ASI_API_URL", &c.Advisor.Narrative.URL)
	str("EXCHANGE_SYMBOL", &c.Collector.Exchange.Symbol)
	str("LOG_LEVEL", &c.Log.Level)

	if v := util.SplitList(os.Getenv("KAFKA_BROKERS")); len(v) > 0 {
		c.Kafka.Brokers = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Enabled = true
		c.Redis.Addr = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Enabled = true
		c.ClickHouse.Host = v
	}
}

// Validate checks the stage independent parts of the configuration.
func (c *Config) Validate() error {
	return validate.Struct(c)
}

// ValidateFor checks what a given stage needs to start. Missing peer
// addresses and the narrative API key are fatal.
func (c *Config) ValidateFor(stage Stage) error {
	switch stage {
	case StageCollector:
		if c.Analyst.Address == "" {
			return fmt.Errorf("analyst address is required (ANALYST_AGENT_ADDRESS)")
		}
	case StageAnalyst:
		if c.Analyst.Address == "" {
			return fmt.Errorf("analyst address is required (ANALYST_AGENT_ADDRESS)")
		}
		if c.Advisor.Address == "" {
			return fmt.Errorf("advisor address is required (ADVISOR_AGENT_ADDRESS)")
		}
	case StageAdvisor:
		if c.Advisor.Address == "" {
			return fmt.Errorf("advisor address is required (ADVISOR_AGENT_ADDRESS)")
		}
		if c.Advisor.Narrative.APIKey == "" {
			return fmt.Errorf("advisor.narrative.api_key is required (ASI_API_KEY)")
		}
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
	return nil
}

// For returns the settings of one stage.
func (c *Config) For(stage Stage) StageConfig {
	switch stage {
	case StageCollector:
		return c.Collector.StageConfig
	case StageAnalyst:
		return c.Analyst.StageConfig
	default:
		return c.Advisor.StageConfig
	}
}

// PeerAddress is the address a stage sends its result to. The advisor is
// the end of the pipeline and has none.
func (c *Config) PeerAddress(stage Stage) string {
	switch stage {
	case StageCollector:
		return c.Analyst.Address
	case StageAnalyst:
		return c.Advisor.Address
	default:
		return ""
	}
}
