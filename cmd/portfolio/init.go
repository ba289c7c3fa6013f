package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"portfolio/internal/config"
	"portfolio/internal/storage"
)

var initForceFlag bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config.toml and create the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(configDirFlag, "config.toml")
		if _, err := os.Stat(path); err == nil && !initForceFlag {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		cfg := config.DefaultConfig()
		if dbPathFlag != "" {
			cfg.DatabasePath = dbPathFlag
		}
		if err := cfg.Save(configDirFlag); err != nil {
			return fmt.Errorf("write config: %w", err)
		}

		logger, closeLog, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		db, err := storage.Open(cfg.DatabasePath, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nDatabase ready at %s\n", path, db.Path())
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForceFlag, "force", false, "Overwrite an existing config.toml")
	rootCmd.AddCommand(initCmd)
}
