package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	StoreDriverRemote = "remote"
	StoreDriverSQLite = "sqlite"
)

// ViewerConfig selects whose feed is computed.
type ViewerConfig struct {
	Email string `mapstructure:"email" yaml:"email"`
}

// StoreConfig holds settings for the entity store backing all sources.
type StoreConfig struct {
	// Driver is "remote" (HTTP entity API) or "sqlite" (local database).
	Driver string `mapstructure:"driver" yaml:"driver"`

	// BaseURL is the root URL of the remote entity API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// AppID scopes entity requests on the remote API.
	AppID string `mapstructure:"app_id" yaml:"app_id"`

	TimeoutSec int  `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxRetries uint `mapstructure:"max_retries" yaml:"max_retries"`
}

// Timeout returns the per-request timeout of the remote store.
func (c StoreConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// LocalConfig holds settings for client-local persistence.
type LocalConfig struct {
	// DBPath is the SQLite file holding local dismissal overrides, and all
	// entities when the sqlite store driver is selected.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// FeedConfig tunes aggregation and display of the updates feed.
type FeedConfig struct {
	CacheTTLSec         int `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	FetchTimeoutSec     int `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`
	ReminderWindowHours int `mapstructure:"reminder_window_hours" yaml:"reminder_window_hours"`
	RefreshIntervalSec  int `mapstructure:"refresh_interval_sec" yaml:"refresh_interval_sec"`
	CollapsedLines      int `mapstructure:"collapsed_lines" yaml:"collapsed_lines"`
}

// CacheTTL returns the result cache lifetime.
func (c FeedConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// FetchTimeout returns the per-source fetch deadline.
func (c FeedConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSec) * time.Second
}

// ReminderWindow returns how long before an event its reminder appears.
func (c FeedConfig) ReminderWindow() time.Duration {
	return time.Duration(c.ReminderWindowHours) * time.Hour
}

// RefreshInterval returns the background refresh period.
func (c FeedConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSec) * time.Second
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Viewer ViewerConfig `mapstructure:"viewer" yaml:"viewer"`
	Store  StoreConfig  `mapstructure:"store" yaml:"store"`
	Local  LocalConfig  `mapstructure:"local" yaml:"local"`
	Feed   FeedConfig   `mapstructure:"feed" yaml:"feed"`
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/updates-center, falling back to the working
// directory when the home directory cannot be determined.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "updates-center")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := ConfigDir()
	return &AppConfig{
		Store: StoreConfig{
			Driver:     StoreDriverRemote,
			TimeoutSec: 30,
			MaxRetries: 3,
		},
		Local: LocalConfig{
			DBPath: filepath.Join(dir, "local.db"),
		},
		Feed: FeedConfig{
			CacheTTLSec:         300,
			FetchTimeoutSec:     20,
			ReminderWindowHours: 48,
			RefreshIntervalSec:  60,
			CollapsedLines:      2,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "updates-center.log"),
		},
	}
}

// SetDefaults registers the default values on v so that missing keys
// resolve to sensible values.
func SetDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.timeout_sec", d.Store.TimeoutSec)
	v.SetDefault("store.max_retries", d.Store.MaxRetries)
	v.SetDefault("local.db_path", d.Local.DBPath)
	v.SetDefault("feed.cache_ttl_sec", d.Feed.CacheTTLSec)
	v.SetDefault("feed.fetch_timeout_sec", d.Feed.FetchTimeoutSec)
	v.SetDefault("feed.reminder_window_hours", d.Feed.ReminderWindowHours)
	v.SetDefault("feed.refresh_interval_sec", d.Feed.RefreshIntervalSec)
	v.SetDefault("feed.collapsed_lines", d.Feed.CollapsedLines)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
}

// ReadConfig reads the configuration file registered on v. A missing file
// is not an error: defaults (and any bound flags) apply.
func ReadConfig(v *viper.Viper) (*AppConfig, error) {
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, missing := err.(viper.ConfigFileNotFoundError)
		if _, ok := err.(*os.PathError); !ok && !missing {
			return nil, fmt.Errorf("reading config %s: %w", v.ConfigFileUsed(), err)
		}
	}

	return DecodeConfig(v)
}

// DecodeConfig unmarshals the current state of v into an AppConfig.
func DecodeConfig(v *viper.Viper) (*AppConfig, error) {
	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	return ReadConfig(v)
}

// Validate rejects configurations the feed cannot run with.
func (c *AppConfig) Validate() error {
	switch c.Store.Driver {
	case StoreDriverRemote:
		if c.Store.BaseURL == "" {
			return fmt.Errorf("config: store.base_url is required for the remote driver")
		}
	case StoreDriverSQLite:
	default:
		return fmt.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
	if c.Feed.CacheTTLSec < 0 || c.Feed.FetchTimeoutSec < 0 {
		return fmt.Errorf("config: feed durations must not be negative")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("viewer", cfg.Viewer)
	v.Set("store", cfg.Store)
	v.Set("local", cfg.Local)
	v.Set("feed", cfg.Feed)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
