package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	pgstore "github.com/tinoosan/finledger/internal/storage/postgres"
)

var errNoDatabase = errors.New("no database configured: set DATABASE_URL or DB_HOST")

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.DatabaseURL == "" {
				return errNoDatabase
			}
			dir := pgstore.Up
			if args[0] == "down" {
				dir = pgstore.Down
			}
			if err := pgstore.Migrate(a.cfg.DatabaseURL, dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok\n", args[0])
			return nil
		},
	}
}
