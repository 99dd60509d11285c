// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/promoscout/promoscout/internal/scraper"
)

// Config is the top-level application configuration.
type Config struct {
	Competitor string                 `yaml:"competitor" json:"competitor"`
	SourceURLs []string               `yaml:"source_urls" json:"source_urls"`
	Scrape     ScrapeConfig           `yaml:"scrape" json:"scrape"`
	Categories []scraper.CategoryRule `yaml:"categories,omitempty" json:"categories,omitempty"`
	Storage    StorageConfig          `yaml:"storage" json:"storage"`
	Server     ServerConfig           `yaml:"server" json:"server"`
	Schedule   ScheduleConfig         `yaml:"schedule" json:"schedule"`
	LogLevel   string                 `yaml:"log_level" json:"log_level"`
}

// ScrapeConfig tunes extraction and fetching. Duration fields are strings
// in time.ParseDuration syntax ("30s", "2m").
type ScrapeConfig struct {
	MinNameLength        int               `yaml:"min_name_length" json:"min_name_length"`
	MinDescriptionLength int               `yaml:"min_description_length" json:"min_description_length"`
	StaleAfterDays       int               `yaml:"stale_after_days" json:"stale_after_days"`
	Concurrency          int               `yaml:"concurrency" json:"concurrency"`
	Timeout              string            `yaml:"timeout" json:"timeout"`
	RateLimit            float64           `yaml:"rate_limit" json:"rate_limit"`
	RateBurst            int               `yaml:"rate_burst" json:"rate_burst"`
	UserAgents           []string          `yaml:"user_agents,omitempty" json:"user_agents,omitempty"`
	Headers              map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	UseBrowser           bool              `yaml:"use_browser" json:"use_browser"`
	PromoPatterns        []string          `yaml:"promo_patterns,omitempty" json:"promo_patterns,omitempty"`
}

// TimeoutDuration returns the parsed fetch timeout. Validate guarantees the
// string parses.
func (s ScrapeConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.Timeout)
	return d
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend       string `yaml:"backend" json:"backend"`
	SQLitePath    string `yaml:"sqlite_path,omitempty" json:"sqlite_path,omitempty"`
	DSN           string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	MongoURI      string `yaml:"mongo_uri,omitempty" json:"mongo_uri,omitempty"`
	MongoDatabase string `yaml:"mongo_database,omitempty" json:"mongo_database,omitempty"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host          string `yaml:"host" json:"host"`
	Port          int    `yaml:"port" json:"port"`
	ReadTimeout   string `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout  string `yaml:"write_timeout" json:"write_timeout"`
	EnableMetrics bool   `yaml:"enable_metrics" json:"enable_metrics"`
}

// ReadTimeoutDuration returns the parsed read timeout.
func (s ServerConfig) ReadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.ReadTimeout)
	return d
}

// WriteTimeoutDuration returns the parsed write timeout.
func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.WriteTimeout)
	return d
}

// ScheduleConfig configures the periodic scan trigger.
type ScheduleConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Interval   string `yaml:"interval" json:"interval"`
	RunOnStart bool   `yaml:"run_on_start" json:"run_on_start"`
}

// IntervalDuration returns the parsed scan interval.
func (s ScheduleConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(s.Interval)
	return d
}

// LoadFromFile loads configuration from a YAML file. Environment variable
// references of the form ${VAR} are expanded before parsing.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from raw YAML.
func LoadFromBytes(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills unset fields with sensible values.
func (c *Config) applyDefaults() {
	if c.Scrape.MinNameLength == 0 {
		c.Scrape.MinNameLength = scraper.DefaultMinNameLength
	}
	if c.Scrape.MinDescriptionLength == 0 {
		c.Scrape.MinDescriptionLength = scraper.DefaultMinDescriptionLength
	}
	if c.Scrape.StaleAfterDays == 0 {
		c.Scrape.StaleAfterDays = 3
	}
	if c.Scrape.Concurrency == 0 {
		c.Scrape.Concurrency = 3
	}
	if c.Scrape.Timeout == "" {
		c.Scrape.Timeout = "30s"
	}
	if c.Scrape.RateLimit == 0 {
		c.Scrape.RateLimit = 1.0
	}
	if c.Scrape.RateBurst == 0 {
		c.Scrape.RateBurst = 5
	}
	if len(c.Scrape.PromoPatterns) == 0 {
		c.Scrape.PromoPatterns = scraper.DefaultPromoPatterns
	}
	if len(c.Categories) == 0 {
		c.Categories = scraper.DefaultCategoryRules()
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "sqlite"
	}
	if c.Storage.Backend == "sqlite" && c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/promoscout.db"
	}
	if c.Storage.Backend == "mongodb" && c.Storage.MongoDatabase == "" {
		c.Storage.MongoDatabase = "promoscout"
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "15s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}

	if c.Schedule.Interval == "" {
		c.Schedule.Interval = "6h"
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Competitor == "" {
		return fmt.Errorf("competitor name is required")
	}

	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
		}
	case "postgres", "mysql":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the %s backend", c.Storage.Backend)
		}
	case "mongodb":
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for the mongodb backend")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s", c.Storage.Backend)
	}

	if c.Scrape.StaleAfterDays < 0 {
		return fmt.Errorf("scrape.stale_after_days cannot be negative")
	}
	if c.Scrape.Concurrency < 0 {
		return fmt.Errorf("scrape.concurrency cannot be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}

	for field, value := range map[string]string{
		"scrape.timeout":       c.Scrape.Timeout,
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
		"schedule.interval":    c.Schedule.Interval,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("%s: invalid duration %q", field, value)
		}
	}
	if c.Schedule.Enabled && c.Schedule.IntervalDuration() < time.Minute {
		return fmt.Errorf("schedule.interval must be at least one minute")
	}

	for i, rule := range c.Categories {
		if rule.Category == "" {
			return fmt.Errorf("categories[%d]: category name is required", i)
		}
		if len(rule.Keywords) == 0 {
			return fmt.Errorf("categories[%d] (%s): at least one keyword is required", i, rule.Category)
		}
	}

	return nil
}
