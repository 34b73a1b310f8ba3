package main

import (
	"github.com/Veraticus/till/internal/model"
	"github.com/spf13/cobra"
)

func withdrawCmd() *cobra.Command {
	var flags transferFlags

	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw to M-PESA or a bank account",
		Long: `Withdraw money from your account to an M-PESA number or a bank account.

The transfer is summarized and only sent after you confirm it.`,
		Example: `  till withdraw --amount 50 --mpesa 0712345678
  till withdraw --amount 1200 --bank kcb --account 1234567890`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransfer(cmd, model.KindWithdrawal, flags)
		},
	}

	addTransferFlags(cmd, &flags)

	return cmd
}
