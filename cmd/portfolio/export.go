package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"portfolio/internal/export"
)

var (
	exportOutFlag  string
	exportGzipFlag bool
)

var exportCmd = &cobra.Command{
	Use:   "export <entity>",
	Short: "Export a listing as CSV",
	Long: "Export writes one entity listing (" + strings.Join(export.Entities, ", ") +
		") as CSV to stdout or --out, optionally gzip-compressed.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, _, cleanup, err := openStore()
		if err != nil {
			return err
		}
		defer cleanup()

		out := cmd.OutOrStdout()
		if exportOutFlag != "" {
			f, err := os.Create(exportOutFlag)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		return export.NewExporter(store).Write(out, args[0], exportGzipFlag)
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutFlag, "out", "", "Output file (default stdout)")
	exportCmd.Flags().BoolVar(&exportGzipFlag, "gzip", false, "Compress the CSV with gzip")
	rootCmd.AddCommand(exportCmd)
}
