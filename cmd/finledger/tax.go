package main

import (
	"fmt"

	"github.com/govalues/decimal"
	"github.com/spf13/cobra"

	"github.com/tinoosan/finledger/internal/tax"
)

func taxCmd(a *app) *cobra.Command {
	var income, deductions, bracketsFile string
	cmd := &cobra.Command{
		Use:   "tax",
		Short: "Compute progressive income tax for one year",
		Example: `  finledger tax --income 85000 --deductions 12000
  finledger tax --income 85000 --brackets brackets.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inc, err := decimal.Parse(income)
			if err != nil {
				return fmt.Errorf("invalid --income %q: %w", income, err)
			}
			ded, err := decimal.Parse(deductions)
			if err != nil {
				return fmt.Errorf("invalid --deductions %q: %w", deductions, err)
			}

			if bracketsFile == "" {
				bracketsFile = a.cfg.TaxBracketsFile
			}
			schedule := tax.DefaultSchedule()
			if bracketsFile != "" {
				if schedule, err = tax.LoadSchedule(bracketsFile); err != nil {
					return err
				}
			}

			res, err := schedule.Compute(inc, ded)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "taxable_income: %s\n", res.TaxableIncome)
			fmt.Fprintf(out, "tax_due:        %s\n", res.TaxDue)
			return nil
		},
	}
	cmd.Flags().StringVar(&income, "income", "", "gross annual income")
	cmd.Flags().StringVar(&deductions, "deductions", "0", "total deductions")
	cmd.Flags().StringVar(&bracketsFile, "brackets", "", "YAML bracket table (defaults to TAX_BRACKETS_FILE)")
	_ = cmd.MarkFlagRequired("income")
	return cmd
}
