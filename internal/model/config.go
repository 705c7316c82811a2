package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DatabaseConfig holds settings for the local SQLite database.
type DatabaseConfig struct {
	// Path is the location of the database file. ":memory:" is allowed.
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig controls the structured debug log.
type LogConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level" yaml:"level"`

	// Dir is where debug.log is written. Empty means stderr.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ChecklistConfig holds checklist display defaults.
type ChecklistConfig struct {
	ShowCompleted bool `mapstructure:"show_completed" yaml:"show_completed"`

	// ConfirmWindowSec is how long a destructive action waits for a
	// second keypress before it is cancelled.
	ConfirmWindowSec int `mapstructure:"confirm_window_sec" yaml:"confirm_window_sec"`
}

// TimerConfig holds settings for the active timer display.
type TimerConfig struct {
	// TickMs is how often the running timer repaints.
	TickMs int `mapstructure:"tick_ms" yaml:"tick_ms"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Checklist ChecklistConfig `mapstructure:"checklist" yaml:"checklist"`
	Timer     TimerConfig     `mapstructure:"timer" yaml:"timer"`
	Display   DisplayConfig   `mapstructure:"display" yaml:"display"`
}

// ConfirmWindow returns the destructive-action confirmation window.
func (c *AppConfig) ConfirmWindow() time.Duration {
	return time.Duration(c.Checklist.ConfirmWindowSec) * time.Second
}

// TickInterval returns the timer repaint interval.
func (c *AppConfig) TickInterval() time.Duration {
	return time.Duration(c.Timer.TickMs) * time.Millisecond
}

// ConfigDir returns ~/.config/tasktimer, falling back to the working directory.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "tasktimer")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tasktimer/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Database: DatabaseConfig{
			Path: filepath.Join(ConfigDir(), "tasktimer.db"),
		},
		Log: LogConfig{
			Level: "INFO",
		},
		Checklist: ChecklistConfig{
			ShowCompleted:    true,
			ConfirmWindowSec: 3,
		},
		Timer: TimerConfig{
			TickMs: 1000,
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// newViper builds a viper instance with defaults and environment overrides.
func newViper(path string) *viper.Viper {
	def := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.dir", def.Log.Dir)
	v.SetDefault("checklist.show_completed", def.Checklist.ShowCompleted)
	v.SetDefault("checklist.confirm_window_sec", def.Checklist.ConfirmWindowSec)
	v.SetDefault("timer.tick_ms", def.Timer.TickMs)
	v.SetDefault("display.theme", def.Display.Theme)

	// TASKTIMER_DATABASE_PATH overrides database.path, and so on.
	v.SetEnvPrefix("TASKTIMER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults (plus environment overrides) are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := newViper(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	return decodeConfig(v, path)
}

// decodeConfig unmarshals v and normalises out-of-range values.
func decodeConfig(v *viper.Viper, path string) (*AppConfig, error) {
	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Checklist.ConfirmWindowSec <= 0 {
		cfg.Checklist.ConfirmWindowSec = 3
	}
	if cfg.Timer.TickMs <= 0 {
		cfg.Timer.TickMs = 1000
	}
	cfg.Log.Level = strings.ToUpper(cfg.Log.Level)

	return cfg, nil
}

// WatchConfig re-reads the configuration file whenever it changes on disk
// and passes the new configuration to onChange. Parse failures are reported
// through onError and the previous configuration stays in effect.
func WatchConfig(path string, onChange func(*AppConfig), onError func(error)) {
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		if onError != nil {
			onError(fmt.Errorf("reading config %s: %w", path, err))
		}
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := decodeConfig(v, e.Name)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
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

	v.Set("database", cfg.Database)
	v.Set("log", cfg.Log)
	v.Set("checklist", cfg.Checklist)
	v.Set("timer", cfg.Timer)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
