package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Storage backends selectable in StorageConfig.Backend.
const (
	BackendSQLite = "sqlite"
	BackendBlob   = "blob"
)

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Backend is BackendSQLite or BackendBlob.
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the SQLite database file, or the blob store directory.
	Path string `mapstructure:"path" yaml:"path"`

	// FlushDelayMS is the debounce window for durable writes. Zero makes
	// every mutation flush synchronously.
	FlushDelayMS int `mapstructure:"flush_delay_ms" yaml:"flush_delay_ms"`

	// MaxBlobBytes caps the serialized blob size (0 = unlimited).
	MaxBlobBytes int64 `mapstructure:"max_blob_bytes" yaml:"max_blob_bytes"`

	// LegacyPath is the directory holding the legacy "tasks" and
	// "history" blobs read by the migrator.
	LegacyPath string `mapstructure:"legacy_path" yaml:"legacy_path"`
}

// FlushDelay returns FlushDelayMS as a duration.
func (c StorageConfig) FlushDelay() time.Duration {
	return time.Duration(c.FlushDelayMS) * time.Millisecond
}

// NotificationConfig controls the pinned-task notification.
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	// Theme is the glamour style used to render notes ("dark", "light", "notty").
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage       StorageConfig      `mapstructure:"storage" yaml:"storage"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Display       DisplayConfig      `mapstructure:"display" yaml:"display"`
}

// DefaultConfigDir returns ~/.config/checklist.
func DefaultConfigDir() string {
	home, err := homedir.Dir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "checklist")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/checklist/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dir := DefaultConfigDir()
	return &AppConfig{
		Storage: StorageConfig{
			Backend:      BackendSQLite,
			Path:         filepath.Join(dir, "checklist.db"),
			FlushDelayMS: 300,
			LegacyPath:   filepath.Join(dir, "legacy"),
		},
		Notifications: NotificationConfig{Enabled: true},
		Display:       DisplayConfig{Theme: "dark"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Values may be overridden by CHECKLIST_* environment variables
// (e.g. CHECKLIST_STORAGE_BACKEND). If the file does not exist, defaults
// are used.
func LoadConfig(path string) (*AppConfig, error) {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CHECKLIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("storage.backend", def.Storage.Backend)
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("storage.flush_delay_ms", def.Storage.FlushDelayMS)
	v.SetDefault("storage.max_blob_bytes", def.Storage.MaxBlobBytes)
	v.SetDefault("storage.legacy_path", def.Storage.LegacyPath)
	v.SetDefault("notifications.enabled", def.Notifications.Enabled)
	v.SetDefault("display.theme", def.Display.Theme)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// normalize expands "~" in paths and checks enumerated values.
func (c *AppConfig) normalize() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendBlob:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.FlushDelayMS < 0 {
		return fmt.Errorf("storage.flush_delay_ms must not be negative")
	}

	var err error
	if c.Storage.Path, err = homedir.Expand(c.Storage.Path); err != nil {
		return fmt.Errorf("expanding storage.path: %w", err)
	}
	if c.Storage.LegacyPath, err = homedir.Expand(c.Storage.LegacyPath); err != nil {
		return fmt.Errorf("expanding storage.legacy_path: %w", err)
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

	v.Set("storage", map[string]any{
		"backend":        cfg.Storage.Backend,
		"path":           cfg.Storage.Path,
		"flush_delay_ms": cfg.Storage.FlushDelayMS,
		"max_blob_bytes": cfg.Storage.MaxBlobBytes,
		"legacy_path":    cfg.Storage.LegacyPath,
	})
	v.Set("notifications", map[string]any{"enabled": cfg.Notifications.Enabled})
	v.Set("display", map[string]any{"theme": cfg.Display.Theme})

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
