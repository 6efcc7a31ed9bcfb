package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tinoosan/finledger/internal/ledger"
	"github.com/tinoosan/finledger/internal/service/journal"
	pgstore "github.com/tinoosan/finledger/internal/storage/postgres"
)

func reconcileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile <account-id>",
		Short: "Recompute an account balance from its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid account id %q: %w", args[0], err)
			}
			if a.cfg.DatabaseURL == "" {
				return errNoDatabase
			}
			ctx := cmd.Context()
			pg, err := pgstore.Open(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pg.Close()

			logger := buildLogger(os.Stderr, a.cfg.LogLevel, a.cfg.LogFormat)
			svc := journal.New(pg, pg, journal.WithLogger(logger))
			ok, err := svc.Reconcile(ctx, id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("account %s not found", id)
			}
			acc, err := pg.GetAccount(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s balance %s (%d minor)\n",
				acc.ID, acc.Name, acc.Balance.Decimal(), ledger.MinorUnits(acc.Balance))
			return nil
		},
	}
}
