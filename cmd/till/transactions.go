package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/till/internal/api"
	"github.com/Veraticus/till/internal/cli"
	"github.com/Veraticus/till/internal/common"
	"github.com/Veraticus/till/internal/model"
	"github.com/spf13/cobra"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"history"},
		Short:   "List recent deposits and withdrawals",
		Long: `List recent deposits and withdrawals, newest first.

Without --type the full history is shown, falling back to the local cache
when the bank cannot be reached. With --type the bank's deposit or
withdrawal history is fetched directly.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			limit, _ := cmd.Flags().GetInt("limit")
			typeFilter, _ := cmd.Flags().GetString("type")

			var want model.TransactionType
			switch typeFilter {
			case "":
			case string(model.TransactionDeposit), string(model.TransactionWithdrawal):
				want = model.TransactionType(typeFilter)
			default:
				return common.NewUserError(fmt.Sprintf("Unknown type %q: use deposit or withdrawal.", typeFilter), nil)
			}

			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			txns, stale, err := env.history(ctx, want)
			if err != nil {
				return err
			}
			txns = limitTransactions(txns, limit)

			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No transactions yet."))
				return nil
			}
			if stale {
				fmt.Fprintln(out, cli.FormatWarning("Offline: showing cached history."))
			}
			return cli.WriteTransactions(out, txns)
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "maximum number of transactions to show (0 for all)")
	cmd.Flags().String("type", "", "only show deposit or withdrawal")

	return cmd
}

// history returns the transactions of type want, or all of them when want is
// empty. Only the full history may come from the cache, in which case stale
// is true.
func (e *environment) history(ctx context.Context, want model.TransactionType) ([]model.Transaction, bool, error) {
	var fetch func(context.Context) ([]model.Transaction, error)
	switch want {
	case model.TransactionDeposit:
		fetch = e.client.DepositHistory
	case model.TransactionWithdrawal:
		fetch = e.client.WithdrawalHistory
	default:
		if err := e.refreshOrCached(ctx); err != nil {
			return nil, false, err
		}
		snap := e.account.Snapshot()
		return snap.Transactions, snap.Stale, nil
	}

	txns, err := fetch(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		return nil, false, e.authError(err)
	}
	if err != nil {
		return nil, false, common.NewUserError(api.UserMessage(err), err)
	}
	return txns, false, nil
}

// limitTransactions caps txns at limit when limit is positive.
func limitTransactions(txns []model.Transaction, limit int) []model.Transaction {
	if limit > 0 && len(txns) > limit {
		return txns[:limit]
	}
	return txns
}
