package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// DefaultStorageKey is the key the task array is stored under.
const DefaultStorageKey = "taskboard.tasks"

// StorageConfig selects where the task array is persisted.
type StorageConfig struct {
	// Backend is "sqlite" or "json".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the SQLite database file, or the directory for the json backend.
	Path string `mapstructure:"path" yaml:"path"`

	// Key is the storage key holding the whole task array.
	Key string `mapstructure:"key" yaml:"key"`
}

// AIConfig holds settings for the task suggestion integration.
type AIConfig struct {
	Model       string  `mapstructure:"model" yaml:"model"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	Count       int     `mapstructure:"count" yaml:"count"`
	TimeoutSec  int     `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// ReminderConfig controls the background reminder check.
type ReminderConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	IntervalSec int  `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	ToastSec int `mapstructure:"toast_sec" yaml:"toast_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage   StorageConfig  `mapstructure:"storage" yaml:"storage"`
	AI        AIConfig       `mapstructure:"ai" yaml:"ai"`
	Reminders ReminderConfig `mapstructure:"reminders" yaml:"reminders"`
	Display   DisplayConfig  `mapstructure:"display" yaml:"display"`
}

// ConfigDir returns ~/.config/taskboard, or the working directory when the
// home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "taskboard")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskboard/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Path:    filepath.Join(ConfigDir(), "taskboard.db"),
			Key:     DefaultStorageKey,
		},
		AI: AIConfig{
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			MaxTokens:   800,
			Temperature: 0.7,
			Count:       5,
			TimeoutSec:  30,
		},
		Reminders: ReminderConfig{
			Enabled:     true,
			IntervalSec: 30,
		},
		Display: DisplayConfig{
			ToastSec: 3,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultAppConfig()
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.key", d.Storage.Key)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.base_url", d.AI.BaseURL)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.temperature", d.AI.Temperature)
	v.SetDefault("ai.count", d.AI.Count)
	v.SetDefault("ai.timeout_sec", d.AI.TimeoutSec)
	v.SetDefault("reminders.enabled", d.Reminders.Enabled)
	v.SetDefault("reminders.interval_sec", d.Reminders.IntervalSec)
	v.SetDefault("display.toast_sec", d.Display.ToastSec)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Missing files and keys fall back to defaults. Environment variables
// prefixed with TASKBOARD_ override file values (TASKBOARD_AI_MODEL etc.).
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("taskboard")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.normalize()

	return cfg, nil
}

// normalize repairs out-of-range values left by a hand-edited file.
func (c *AppConfig) normalize() {
	d := DefaultAppConfig()
	switch c.Storage.Backend {
	case BackendSQLite, BackendJSON:
	default:
		c.Storage.Backend = d.Storage.Backend
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		c.Storage.Key = d.Storage.Key
	}
	c.Storage.Path = expandHome(c.Storage.Path)
	if c.AI.Count <= 0 {
		c.AI.Count = d.AI.Count
	}
	if c.AI.Count > 10 {
		c.AI.Count = 10
	}
	if c.AI.TimeoutSec <= 0 {
		c.AI.TimeoutSec = d.AI.TimeoutSec
	}
	if c.Reminders.IntervalSec <= 0 {
		c.Reminders.IntervalSec = d.Reminders.IntervalSec
	}
	if c.Display.ToastSec <= 0 {
		c.Display.ToastSec = d.Display.ToastSec
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
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

	v.Set("storage", cfg.Storage)
	v.Set("ai", cfg.AI)
	v.Set("reminders", cfg.Reminders)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
