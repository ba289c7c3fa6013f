package main

import (
	"os"

	"portfolio/internal/slogutil"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger := slogutil.NewLogger(os.Stderr, slogutil.LevelFromString("info"))
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
