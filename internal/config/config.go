// Package config provides configuration management for the scanner.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"wse-scanner/internal/errors"
	"wse-scanner/internal/logging"
)

// EnvPrefix prefixes environment overrides, e.g. GPW_SCANNER_MIN_TURNOVER.
const EnvPrefix = "GPW"

// Config holds all application configuration.
type Config struct {
	Scanner       ScannerConfig      `mapstructure:"scanner"`
	Quotes        QuotesConfig       `mapstructure:"quotes"`
	Retry         RetryConfig        `mapstructure:"retry"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Export        ExportConfig       `mapstructure:"export"`
	Logging       logging.LogConfig  `mapstructure:"logging"`
}

// ScannerConfig holds the admission thresholds and pattern settings.
type ScannerConfig struct {
	MinTurnover      float64 `mapstructure:"min_turnover"`
	MinPrice         float64 `mapstructure:"min_price"`
	RiseFactor       float64 `mapstructure:"rise_factor"`
	RiseMode         string  `mapstructure:"rise_mode"`   // turnover, volume, any
	HammerRatio      float64 `mapstructure:"hammer_ratio"`
	Granularity      string  `mapstructure:"granularity"` // daily, weekly
	Concurrency      int     `mapstructure:"concurrency"`
	ExtendedPatterns bool    `mapstructure:"extended_patterns"`
	DateCheck        bool    `mapstructure:"date_check"`
}

// QuotesConfig holds market data settings.
type QuotesConfig struct {
	DataDir         string        `mapstructure:"data_dir"`
	URL             string        `mapstructure:"url"`
	InstrumentsFile string        `mapstructure:"instruments_file"`
	CacheEnabled    bool          `mapstructure:"cache_enabled"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	DBPath          string        `mapstructure:"db_path"`
}

// RetryConfig holds retry settings for downloads and whole scans.
type RetryConfig struct {
	MaxAttempts   int           `mapstructure:"max_attempts"`
	Delay         time.Duration `mapstructure:"delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	DryRun    bool           `mapstructure:"dry_run"`
	MaxLength int            `mapstructure:"max_length"`
	Hashtag   string         `mapstructure:"hashtag"`
	Webhook   WebhookConfig  `mapstructure:"webhook"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/wse-scanner"
	}
	return filepath.Join(home, ".config", "wse-scanner")
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("scanner.min_turnover", 100_000.0)
	v.SetDefault("scanner.min_price", 2.0)
	v.SetDefault("scanner.rise_factor", 1.5)
	v.SetDefault("scanner.rise_mode", "turnover")
	v.SetDefault("scanner.hammer_ratio", 2.0)
	v.SetDefault("scanner.granularity", "daily")
	v.SetDefault("scanner.concurrency", 8)
	v.SetDefault("scanner.extended_patterns", false)
	v.SetDefault("scanner.date_check", true)

	v.SetDefault("quotes.data_dir", filepath.Join(configDir, "mstall"))
	v.SetDefault("quotes.url", "https://info.bossa.pl/pub/metastock/mstock/mstall.zip")
	v.SetDefault("quotes.instruments_file", filepath.Join(configDir, "polish-stocks.json"))
	v.SetDefault("quotes.cache_enabled", true)
	v.SetDefault("quotes.cache_ttl", 12*time.Hour)
	v.SetDefault("quotes.db_path", filepath.Join(configDir, "scanner.db"))

	v.SetDefault("retry.max_attempts", 9)
	v.SetDefault("retry.delay", 30*time.Minute)
	v.SetDefault("retry.max_delay", 30*time.Minute)
	v.SetDefault("retry.backoff_factor", 1.0)

	v.SetDefault("notifications.dry_run", false)
	v.SetDefault("notifications.max_length", 160)
	v.SetDefault("notifications.hashtag", "#GPWTweets")

	v.SetDefault("export.dir", filepath.Join(configDir, "exports"))

	logDefaults := logging.DefaultLogConfig()
	v.SetDefault("logging.level", logDefaults.Level)
	v.SetDefault("logging.console", logDefaults.Console)
	v.SetDefault("logging.file", logDefaults.File)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "scanner.log"))
	v.SetDefault("logging.max_size", logDefaults.MaxSize)
	v.SetDefault("logging.max_backups", logDefaults.MaxBackups)
	v.SetDefault("logging.max_age", logDefaults.MaxAge)
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A commented
// template is written when config.toml does not exist.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, fmt.Errorf("writing config template: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	s := c.Scanner
	if s.MinTurnover < 0 {
		return errors.NewValidationError("scanner.min_turnover", s.MinTurnover, "must be non-negative")
	}
	if s.MinPrice < 0 {
		return errors.NewValidationError("scanner.min_price", s.MinPrice, "must be non-negative")
	}
	if s.RiseFactor <= 0 {
		return errors.NewValidationError("scanner.rise_factor", s.RiseFactor, "must be positive")
	}
	if s.HammerRatio <= 0 {
		return errors.NewValidationError("scanner.hammer_ratio", s.HammerRatio, "must be positive")
	}
	switch s.RiseMode {
	case "turnover", "volume", "any":
	default:
		return errors.NewValidationError("scanner.rise_mode", s.RiseMode, "must be turnover, volume or any")
	}
	switch s.Granularity {
	case "daily", "weekly":
	default:
		return errors.NewValidationError("scanner.granularity", s.Granularity, "must be daily or weekly")
	}
	if s.Concurrency <= 0 {
		return errors.NewValidationError("scanner.concurrency", s.Concurrency, "must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		return errors.NewValidationError("retry.max_attempts", c.Retry.MaxAttempts, "must be positive")
	}
	if c.Notifications.MaxLength <= 0 {
		return errors.NewValidationError("notifications.max_length", c.Notifications.MaxLength, "must be positive")
	}
	if c.Notifications.Telegram.Enabled && (c.Notifications.Telegram.BotToken == "" || c.Notifications.Telegram.ChatID == "") {
		return errors.NewValidationError("notifications.telegram", "", "bot_token and chat_id are required when enabled")
	}
	if c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return errors.NewValidationError("notifications.webhook.url", "", "required when enabled")
	}
	return nil
}

// IsWeekly returns true if the scanner evaluates weekly bars.
func (c *Config) IsWeekly() bool {
	return c.Scanner.Granularity == "weekly"
}
