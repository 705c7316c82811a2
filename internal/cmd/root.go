// Package cmd wires the tasktimer command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nhle/tasktimer/internal/logging"
	"github.com/nhle/tasktimer/internal/model"
	"github.com/nhle/tasktimer/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tasktimer",
	Short: "Checklists and time tracking for your tasks",
	Long: `tasktimer keeps a checklist and a time log for every task.

Run without arguments to open the terminal UI. Checklist items can be
sent to the time log and timed one at a time; every checklist edit can
be undone.`,
	SilenceUsage: true,
	RunE:         runUI,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default is $HOME/.config/tasktimer/config.yaml)")
}

// configPath returns the config file in effect.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return model.DefaultConfigPath()
}

func loadConfig() (*model.AppConfig, error) {
	return model.LoadConfig(configPath())
}

// openStore opens the configured database, creating its directory.
func openStore(cfg *model.AppConfig) (*store.SQLiteStore, error) {
	if cfg.Database.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return store.NewSQLiteStore(cfg.Database.Path)
}

// newLogger opens the configured log. Commands that draw to the terminal
// pass a fallback directory so log lines never land on stderr.
func newLogger(cfg *model.AppConfig, fallbackDir string) (*logging.Logger, error) {
	dir := cfg.Log.Dir
	if dir == "" {
		dir = fallbackDir
	}
	return logging.NewLogger(dir, cfg.Log.Level)
}
