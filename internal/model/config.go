package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// GatewayConfig holds connection settings for the remote mail API.
type GatewayConfig struct {
	// BaseURL is the root URL of the mail API (e.g., https://mail.example.com/api).
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec is the HTTP client timeout in seconds.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`

	// MarkUnreadSupported reports whether the deployment exposes the
	// mark-as-unread endpoint. Not every variant of the upstream API has
	// it; when false the client refuses the operation instead of faking it.
	MarkUnreadSupported bool `mapstructure:"mark_unread_supported" yaml:"mark_unread_supported"`
}

// Timeout returns the configured HTTP timeout as a duration.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSec) * time.Second
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme    string `mapstructure:"theme" yaml:"theme"`
	PageSize int    `mapstructure:"page_size" yaml:"page_size"`
}

// SyncConfig controls the background mailbox refresh.
type SyncConfig struct {
	// Enabled controls whether the mailbox is refreshed in the background.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// PollIntervalSec is how often (in seconds) to refresh the mailbox.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Gateway GatewayConfig `mapstructure:"gateway" yaml:"gateway"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Sync    SyncConfig    `mapstructure:"sync" yaml:"sync"`

	// DownloadDir is where attachment downloads are written.
	DownloadDir string `mapstructure:"download_dir" yaml:"download_dir"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/webmail/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "webmail", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	home, _ := os.UserHomeDir()
	return &AppConfig{
		Gateway: GatewayConfig{
			BaseURL:             "http://127.0.0.1:8080",
			TimeoutSec:          30,
			MarkUnreadSupported: true,
		},
		Display: DisplayConfig{
			Theme:    "default",
			PageSize: 20,
		},
		Sync: SyncConfig{
			Enabled:         false,
			PollIntervalSec: 120,
		},
		DownloadDir: filepath.Join(home, "Downloads"),
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	def := defaultAppConfig()
	v.SetDefault("gateway.base_url", def.Gateway.BaseURL)
	v.SetDefault("gateway.timeout_sec", def.Gateway.TimeoutSec)
	v.SetDefault("gateway.mark_unread_supported", def.Gateway.MarkUnreadSupported)
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("display.page_size", def.Display.PageSize)
	v.SetDefault("sync.enabled", def.Sync.Enabled)
	v.SetDefault("sync.poll_interval_sec", def.Sync.PollIntervalSec)
	v.SetDefault("download_dir", def.DownloadDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Display.PageSize <= 0 {
		cfg.Display.PageSize = def.Display.PageSize
	}
	if cfg.Sync.PollIntervalSec <= 0 {
		cfg.Sync.PollIntervalSec = def.Sync.PollIntervalSec
	}

	return cfg, nil
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

	v.Set("gateway", cfg.Gateway)
	v.Set("display", cfg.Display)
	v.Set("sync", cfg.Sync)
	v.Set("download_dir", cfg.DownloadDir)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
