package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"portfolio/internal/importer"
)

var importTemplateFlag bool

var importCmd = &cobra.Command{
	Use:   "import <entity> [file]",
	Short: "Bulk import entities from a CSV file",
	Long: `Import reads a CSV file of units, applications, infrastructure, or
services and creates one record per row on behalf of --user. References are
given by display name. Bad rows are reported and skipped; the rest of the
batch still goes through.

Use --template to print the expected header row instead of importing.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		entity := args[0]

		if importTemplateFlag {
			headers, err := importer.TemplateHeaders(entity)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(headers, ","))
			return nil
		}

		if len(args) < 2 {
			return fmt.Errorf("a CSV file argument is required (or use --template)")
		}
		user, err := requireUser()
		if err != nil {
			return err
		}

		f, err := os.Open(args[1])
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()

		_, store, logger, cleanup, err := openStore()
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := importer.NewImporter(store, logger).Import(user, entity, f)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d record(s)\n", result.Imported)
		for _, rowErr := range result.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  skipped %s\n", rowErr)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&userFlag, "user", "", "Acting user email for audit attribution")
	importCmd.Flags().BoolVar(&importTemplateFlag, "template", false, "Print the CSV header template for the entity")
	rootCmd.AddCommand(importCmd)
}
