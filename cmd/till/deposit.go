package main

import (
	"github.com/Veraticus/till/internal/model"
	"github.com/spf13/cobra"
)

func depositCmd() *cobra.Command {
	var flags transferFlags

	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit from M-PESA or a bank account",
		Long: `Deposit money into your account.

With --mpesa a payment prompt is pushed to the phone; the deposit completes
once it is approved there. Use ` + "`till mpesa status`" + ` to follow it.`,
		Example: `  till deposit --amount 500 --mpesa 0712345678
  till deposit --amount 2500 --bank equity --account 0123456789`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransfer(cmd, model.KindDeposit, flags)
		},
	}

	addTransferFlags(cmd, &flags)

	return cmd
}
