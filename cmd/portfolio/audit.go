package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"portfolio/internal/storage"
)

var (
	auditUserFlag     string
	auditItemTypeFlag string
	auditFromFlag     string
	auditToFlag       string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show the change log, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := storage.AuditFilter{
			User:     auditUserFlag,
			ItemType: auditItemTypeFlag,
		}
		if auditFromFlag != "" {
			t, err := time.Parse("2006-01-02", auditFromFlag)
			if err != nil {
				return fmt.Errorf("--from must be a date in YYYY-MM-DD form")
			}
			filter.From = t
		}
		if auditToFlag != "" {
			t, err := time.Parse("2006-01-02", auditToFlag)
			if err != nil {
				return fmt.Errorf("--to must be a date in YYYY-MM-DD form")
			}
			filter.To = t.Add(24*time.Hour - time.Second)
		}

		_, store, _, cleanup, err := openStore()
		if err != nil {
			return err
		}
		defer cleanup()

		records, err := store.Audit.Query(filter)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, rec := range records {
			line := fmt.Sprintf("%s  %-6s  %-20s  %s  (%s)",
				rec.Timestamp.Format("2006-01-02 15:04:05"),
				rec.Action, rec.ItemType, rec.ItemName, rec.UserEmail)
			if rec.Details != "" {
				line += "  [" + rec.Details + "]"
			}
			fmt.Fprintln(out, line)
		}
		fmt.Fprintf(out, "%d record(s)\n", len(records))
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditUserFlag, "user", "", "Filter by acting user")
	auditCmd.Flags().StringVar(&auditItemTypeFlag, "item-type", "", "Filter by item type")
	auditCmd.Flags().StringVar(&auditFromFlag, "from", "", "Start date (YYYY-MM-DD)")
	auditCmd.Flags().StringVar(&auditToFlag, "to", "", "End date (YYYY-MM-DD), inclusive")
	rootCmd.AddCommand(auditCmd)
}
