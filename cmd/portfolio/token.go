package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"portfolio/internal/auth"
	"portfolio/internal/storage"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API access tokens",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue <email>",
	Short: "Issue an access token for an allow-listed user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, cleanup, err := openAuth()
		if err != nil {
			return err
		}
		defer cleanup()

		token, err := mgr.Issue(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", token)
		fmt.Fprintln(cmd.ErrOrStderr(), "Store this token now; it cannot be shown again.")
		return nil
	},
}

var tokenListCmd = &cobra.Command{
	Use:   "list <email>",
	Short: "List tokens issued to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, cleanup, err := openAuth()
		if err != nil {
			return err
		}
		defer cleanup()

		tokens, err := mgr.Tokens(args[0])
		if err != nil {
			return err
		}
		for _, rec := range tokens {
			state := "active"
			if rec.Revoked {
				state = "revoked"
			}
			last := "never used"
			if rec.LastUsedAt != nil {
				last = "last used " + rec.LastUsedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s...  %s  issued %s  %s\n",
				rec.Prefix, state, rec.CreatedAt.Format("2006-01-02"), last)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d token(s)\n", len(tokens))
		return nil
	},
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <email>",
	Short: "Revoke every token issued to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, cleanup, err := openAuth()
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := mgr.Revoke(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Revoked %d token(s)\n", n)
		return nil
	},
}

func openAuth() (*auth.Manager, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	db, err := storage.Open(cfg.DatabasePath, logger)
	if err != nil {
		closeLog()
		return nil, nil, err
	}
	mgr, err := auth.NewManager(db, cfg.Auth.AllowedUsers, logger)
	if err != nil {
		db.Close()
		closeLog()
		return nil, nil, err
	}
	cleanup := func() {
		db.Close()
		closeLog()
	}
	return mgr, cleanup, nil
}

func init() {
	tokenCmd.AddCommand(tokenIssueCmd, tokenListCmd, tokenRevokeCmd)
	rootCmd.AddCommand(tokenCmd)
}
