package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/josh-kwaku/tradebooks/internal/fiscal"
)

func newBalanceCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Reconstruct a bank account balance from its transaction log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "account")
			if err != nil {
				return err
			}
			a, err := rt.app(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Ledger.GetAccountBalance(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newRefreshBalanceCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-balance <account-id>",
		Short: "Reconstruct a balance and write it to the cached current_balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "account")
			if err != nil {
				return err
			}
			a, err := rt.app(cmd.Context())
			if err != nil {
				return err
			}
			res, err := a.Ledger.RefreshAccountBalance(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newReconcileCmd(rt *runtime) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "reconcile <invoice-id>",
		Short: "Reconcile an invoice against its payments and order status",
		Example: `  ledgerctl reconcile 5f0c...
  ledgerctl reconcile 5f0c... --write`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}
			a, err := rt.app(cmd.Context())
			if err != nil {
				return err
			}
			reconcileFn := a.Invoices.ReconcileInvoice
			if write {
				reconcileFn = a.Invoices.RefreshInvoice
			}
			res, err := reconcileFn(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "Write the reconciled totals back to the invoice")
	return cmd
}

func newSummaryCmd(rt *runtime) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Aggregate the financial summary for a fiscal year (July to June)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("fiscal-year") {
				year = fiscal.YearOf(time.Now().UTC())
			}
			a, err := rt.app(cmd.Context())
			if err != nil {
				return err
			}
			out, err := a.Summary.GetFinancialSummary(cmd.Context(), year)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().IntVar(&year, "fiscal-year", 0, "Fiscal year labelled by its start year (default: the current one)")
	return cmd
}

func newTransferEligibilityCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer-eligibility <invoice-id>",
		Short: "Report whether an invoice still accepts transfers into the settlement country",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "invoice")
			if err != nil {
				return err
			}
			a, err := rt.app(cmd.Context())
			if err != nil {
				return err
			}
			e, err := a.Transfers.IsInvoiceTransferEligible(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), e)
		},
	}
}

func newPruneIdempotencyCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "prune-idempotency",
		Short: "Delete expired idempotency cache entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.app(cmd.Context())
			if err != nil {
				return err
			}
			n, err := a.Idempotency.CleanExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired entries\n", n)
			return nil
		},
	}
}
