package main

import (
	"fmt"

	"github.com/Veraticus/till/internal/cli"
	"github.com/spf13/cobra"
)

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show your available balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.refreshOrCached(ctx); err != nil {
				return err
			}

			snap := env.account.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.TillIcon+" "+cli.AmountStyle.Render(cli.FormatMoney(snap.Balance)))
			if snap.Stale {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf(
					"Offline: showing the balance cached at %s.", snap.FetchedAt.Local().Format("Jan 2 15:04"))))
			}
			return nil
		},
	}
}
