package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"portfolio/internal/config"
	"portfolio/internal/slogutil"
	"portfolio/internal/storage"
	"portfolio/internal/version"
)

var (
	// configDirFlag is the directory holding config.toml
	configDirFlag string

	// dbPathFlag overrides the configured database path
	dbPathFlag string

	// userFlag identifies the acting user on mutating commands
	userFlag string
)

var rootCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Portfolio - IT portfolio catalog",
	Long: `Portfolio catalogs an organization's IT Units, Applications, Infrastructure
assets, and internal IT Services over a single SQLite file, tracks cost and
ownership metadata, and surfaces duplicate/overlap reports for consolidation.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("portfolio version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configDirFlag, "config-dir", ".",
		"Directory containing config.toml")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "",
		"Database file path (overrides configuration)")
}

// loadConfig reads and validates the layered configuration, applying the
// --db override.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configDirFlag)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbPathFlag != "" {
		cfg.DatabasePath = dbPathFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from configuration. The returned
// close function is a no-op for stderr logging.
func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level := slogutil.LevelFromString(cfg.Logging.Level)

	if cfg.Logging.File != "" {
		logger, f, err := slogutil.NewFileLogger(cfg.Logging.File, level)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return logger, func() { f.Close() }, nil
	}
	return slogutil.NewLogger(os.Stderr, level), func() {}, nil
}

// openStore loads configuration, sets up logging, and opens the migrated
// database. The caller closes both via the returned functions.
func openStore() (*config.Config, *storage.Store, *slog.Logger, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	db, err := storage.Open(cfg.DatabasePath, logger)
	if err != nil {
		closeLog()
		return nil, nil, nil, nil, err
	}

	cleanup := func() {
		db.Close()
		closeLog()
	}
	return cfg, storage.NewStore(db), logger, cleanup, nil
}

// requireUser validates the --user flag on mutating commands.
func requireUser() (string, error) {
	if userFlag == "" {
		return "", fmt.Errorf("--user is required for this command")
	}
	return userFlag, nil
}
