// Package config loads the engine configuration from a YAML file with
// environment-variable overrides for deployment secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultReadTimeoutSeconds is the default HTTP read timeout in seconds
	DefaultReadTimeoutSeconds = 10
	// DefaultWriteTimeoutSeconds is the default HTTP write timeout in seconds
	DefaultWriteTimeoutSeconds = 30
	// DefaultShutdownTimeoutSeconds is the default shutdown timeout in seconds
	DefaultShutdownTimeoutSeconds = 30
)

type Config struct {
	Debug     bool            `yaml:"debug"` // Controls log level and format
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Storage   StorageConfig   `yaml:"storage"`
	Engine    EngineConfig    `yaml:"engine"`
	Platforms PlatformsConfig `yaml:"platforms"`
}

type ServerConfig struct {
	Address      string        `yaml:"address"`       // e.g., ":8075"
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"` // Default: 30s
	CORSOrigins  []string      `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StorageConfig configures the temporary object store used for platforms
// that require a publicly retrievable image URL.
type StorageConfig struct {
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`          // Key prefix, e.g. "flyers"
	PublicBaseURL string `yaml:"public_base_url"` // e.g. "https://cdn.dealwire.io"
}

// EngineConfig holds the cycle controller's own knobs. Scheduling cadence,
// ratios and quiet hours live in the settings store, not here.
type EngineConfig struct {
	CronSpec         string        `yaml:"cron_spec"`          // Trigger cadence, default "@hourly"
	Timezone         string        `yaml:"timezone"`           // Reference timezone for quiet hours
	LookbackHours    int           `yaml:"lookback_hours"`     // Catalog freshness window, default 12
	DedupeHours      int           `yaml:"dedupe_hours"`       // Repost exclusion window, default 36
	SiteBaseURL      string        `yaml:"site_base_url"`      // Deep-link base, e.g. "https://dealwire.io"
	ImageTimeout     time.Duration `yaml:"image_timeout"`      // Source image fetch timeout, default 10s
	PublishTimeout   time.Duration `yaml:"publish_timeout"`    // Per-platform publish ceiling, default 30s
	VariantCacheTTL  time.Duration `yaml:"variant_cache_ttl"`  // Phrase-pick stability window, default 6h
	PublishRateLimit float64       `yaml:"publish_rate_limit"` // Publish calls per second, default 1
}

type PlatformsConfig struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Facebook  FacebookConfig  `yaml:"facebook"`
	Twitter   TwitterConfig   `yaml:"twitter"`
	Instagram InstagramConfig `yaml:"instagram"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type FacebookConfig struct {
	PageID      string `yaml:"page_id"`
	AccessToken string `yaml:"access_token"`
}

type TwitterConfig struct {
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	AccessToken  string `yaml:"access_token"`
	AccessSecret string `yaml:"access_secret"`
}

type InstagramConfig struct {
	AccountID   string `yaml:"account_id"`
	AccessToken string `yaml:"access_token"`
}

// Validate checks if the server configuration is valid and sets defaults.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		c.Address = ":8075" // Default port
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeoutSeconds * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeoutSeconds * time.Second
	}
	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Redis.URL == "" {
		return errors.New("redis.url is required")
	}
	if c.Engine.SiteBaseURL == "" {
		return errors.New("engine.site_base_url is required")
	}
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket is required")
	}
	if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
		return fmt.Errorf("engine.timezone %q is invalid: %w", c.Engine.Timezone, err)
	}
	return nil
}

// setDefaults sets default values for configuration fields
func setDefaults(cfg *Config) {
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Engine.CronSpec == "" {
		cfg.Engine.CronSpec = "@hourly"
	}
	if cfg.Engine.Timezone == "" {
		cfg.Engine.Timezone = "America/Toronto"
	}
	if cfg.Engine.LookbackHours == 0 {
		cfg.Engine.LookbackHours = 12
	}
	if cfg.Engine.DedupeHours == 0 {
		cfg.Engine.DedupeHours = 36
	}
	if cfg.Engine.ImageTimeout == 0 {
		cfg.Engine.ImageTimeout = 10 * time.Second
	}
	if cfg.Engine.PublishTimeout == 0 {
		cfg.Engine.PublishTimeout = 30 * time.Second
	}
	if cfg.Engine.VariantCacheTTL == 0 {
		cfg.Engine.VariantCacheTTL = 6 * time.Hour
	}
	if cfg.Engine.PublishRateLimit == 0 {
		cfg.Engine.PublishRateLimit = 1
	}
	if cfg.Storage.Prefix == "" {
		cfg.Storage.Prefix = "flyers"
	}
}

// overrideWithEnvVars overrides configuration with environment variables
func overrideWithEnvVars(cfg *Config) {
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if botToken := os.Getenv("TELEGRAM_BOT_TOKEN"); botToken != "" {
		cfg.Platforms.Telegram.BotToken = botToken
	}
	if fbToken := os.Getenv("FACEBOOK_ACCESS_TOKEN"); fbToken != "" {
		cfg.Platforms.Facebook.AccessToken = fbToken
	}
	if igToken := os.Getenv("INSTAGRAM_ACCESS_TOKEN"); igToken != "" {
		cfg.Platforms.Instagram.AccessToken = igToken
	}
	if appDebug := os.Getenv("APP_DEBUG"); appDebug != "" {
		cfg.Debug = parseBool(appDebug)
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Set defaults
	setDefaults(&cfg)

	// Override with environment variables if present
	overrideWithEnvVars(&cfg)

	// Set server defaults
	if err := cfg.Server.Validate(); err != nil {
		return nil, fmt.Errorf("server config validation: %w", err)
	}

	// Override server config with environment variable if present
	if enginePort := os.Getenv("ENGINE_PORT"); enginePort != "" {
		cfg.Server.Address = ":" + enginePort
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// parseBool parses a string value as a boolean.
// Returns true for "true", "1", "yes" (case-insensitive), false otherwise.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}
