package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	apperrors "portfolio/internal/errors"
	"portfolio/internal/storage"
)

// seedFile is the YAML shape the seed command accepts: lookup values per
// table plus IT units.
type seedFile struct {
	Lookups map[string][]string `yaml:"lookups"`
	Units   []seedUnit          `yaml:"units"`
}

type seedUnit struct {
	Name          string  `yaml:"name"`
	ContactPerson string  `yaml:"contactPerson"`
	ContactEmail  string  `yaml:"contactEmail"`
	Notes         string  `yaml:"notes"`
	TotalFTE      int     `yaml:"totalFte"`
	BudgetAmount  float64 `yaml:"budgetAmount"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Apply a YAML seed file of lookup values and IT units",
	Long: `Seed loads lookup values and IT units from a YAML file through the normal
repositories, so every insert is validated and audited. Re-running the same
file is safe: existing lookup values are skipped and existing units are
reused.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := requireUser()
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		var seed seedFile
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return fmt.Errorf("parse seed file: %w", err)
		}

		_, store, logger, cleanup, err := openStore()
		if err != nil {
			return err
		}
		defer cleanup()

		added, skipped := 0, 0
		for table, names := range seed.Lookups {
			for _, name := range names {
				_, err := store.Lookups.Add(user, table, name)
				switch {
				case err == nil:
					added++
				case apperrors.IsDuplicateName(err):
					skipped++
				default:
					return err
				}
			}
		}

		for _, u := range seed.Units {
			_, created, err := store.Units.Create(user, storage.ITUnit{
				Name:          u.Name,
				ContactPerson: u.ContactPerson,
				ContactEmail:  u.ContactEmail,
				Notes:         u.Notes,
				TotalFTE:      u.TotalFTE,
				BudgetAmount:  u.BudgetAmount,
			}, false)
			if err != nil {
				return err
			}
			if created {
				added++
			} else {
				skipped++
			}
		}

		logger.Info("seed applied", "file", args[0], "added", added, "skipped", skipped)
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d record(s), %d already present\n", added, skipped)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&userFlag, "user", "", "Acting user email for audit attribution")
	rootCmd.AddCommand(seedCmd)
}
