package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research agent service
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Listen   string `mapstructure:"listen"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// LLMConfig contains LLM provider configurations
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type    string              `mapstructure:"type"` // openai-compatible (OpenAI, Groq, ...)
	APIKey  string              `mapstructure:"api_key"`
	BaseURL string              `mapstructure:"base_url"`
	Models  map[string]LLMModel `mapstructure:"models"`
	Timeout time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model to use for different stages
type LLMRoutingConfig struct {
	Research  string `mapstructure:"research"`  // Use for retrieval/extraction stages
	Synthesis string `mapstructure:"synthesis"` // Use for synthesis/authoring stages
	Fallback  string `mapstructure:"fallback"`  // Fallback model
}

// ToolsConfig contains retrieval tool settings
type ToolsConfig struct {
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	WebSearch WebSearchConfig `mapstructure:"web_search"`
	WebFetch  WebFetchConfig  `mapstructure:"web_fetch"`
}

// WikipediaConfig controls the encyclopedia summary tool
type WikipediaConfig struct {
	Language string        `mapstructure:"language"`
	Endpoint string        `mapstructure:"endpoint"`
	MaxChars int           `mapstructure:"max_chars"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// WebSearchConfig controls the web search tool
type WebSearchConfig struct {
	Provider   string `mapstructure:"provider"` // serper, brave, duckduckgo
	APIKey     string `mapstructure:"api_key"`
	MaxResults int    `mapstructure:"max_results"`
}

// WebFetchConfig controls readable-content extraction from search hits
type WebFetchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	MaxChars int           `mapstructure:"max_chars"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// JobsConfig contains job manager settings
type JobsConfig struct {
	Pipeline        string        `mapstructure:"pipeline"` // wikipedia or websearch
	Workers         int           `mapstructure:"workers"`
	ETASeconds      int           `mapstructure:"eta_seconds"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	Retention       time.Duration `mapstructure:"retention"`
	CleanupSchedule string        `mapstructure:"cleanup_schedule"` // @hourly, @daily or 5-field cron
}

func (j JobsConfig) Validate() error {
	if j.Workers < 0 {
		return fmt.Errorf("jobs.workers cannot be negative")
	}
	if j.ETASeconds < 0 {
		return fmt.Errorf("jobs.eta_seconds cannot be negative")
	}
	return nil
}

// StorageConfig selects and configures the job store backend
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // memory, redis, postgres
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required for redis driver")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required for redis driver")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a Postgres connection string from the configured parts.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	CostTracking bool `mapstructure:"cost_tracking"`
}

// CompletionAPIKey resolves the completion service credential: config first,
// then GROQ_API_KEY / OPENAI_API_KEY from the environment. An empty result is a
// reportable condition (surfaced through /health), never a startup crash.
func (c *Config) CompletionAPIKey() string {
	for _, p := range c.LLM.Providers {
		if p.APIKey != "" {
			return p.APIKey
		}
	}
	if k := os.Getenv("GROQ_API_KEY"); k != "" {
		return k
	}
	return os.Getenv("OPENAI_API_KEY")
}

// LoadConfig loads config from file with env overrides (AGENT_*)
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		v.AddConfigPath(exeDir)
		v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Running from env alone is supported; only a broken file is fatal.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Jobs.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Storage.Driver {
	case "", "memory":
	case "redis":
		if err := cfg.Storage.Redis.Validate(); err != nil {
			return nil, err
		}
	case "postgres":
		if err := cfg.Storage.Postgres.Validate(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.listen", ":8000")
	v.SetDefault("general.log_level", "info")
	v.SetDefault("llm.routing.fallback", "llama-4-scout")
	v.SetDefault("tools.wikipedia.language", "pt")
	v.SetDefault("tools.wikipedia.max_chars", 2000)
	v.SetDefault("tools.wikipedia.timeout", 15*time.Second)
	v.SetDefault("tools.web_search.provider", "duckduckgo")
	v.SetDefault("tools.web_search.max_results", 5)
	v.SetDefault("tools.web_fetch.max_chars", 8000)
	v.SetDefault("tools.web_fetch.timeout", 15*time.Second)
	v.SetDefault("jobs.pipeline", "wikipedia")
	v.SetDefault("jobs.workers", 4)
	v.SetDefault("jobs.eta_seconds", 60)
	v.SetDefault("jobs.run_timeout", 5*time.Minute)
	v.SetDefault("jobs.retention", 24*time.Hour)
	v.SetDefault("jobs.cleanup_schedule", "@hourly")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.cost_tracking", true)
}
