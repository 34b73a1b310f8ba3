package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/Veraticus/till/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func banksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "banks",
		Short: "List banks available for transfers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := config.LoadCatalog(viper.GetViper())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, bank := range cat.Banks() {
				fmt.Fprintf(tw, "%s\t%s\n", bank.ID, bank.Name)
			}
			return tw.Flush()
		},
	}
}

func countriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "countries",
		Short: "List countries supported for M-PESA",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := config.LoadCatalog(viper.GetViper())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tCOUNTRY\tDIAL")
			for _, c := range cat.Countries() {
				fmt.Fprintf(tw, "%s\t%s %s\t%s\n", c.ISO, c.Flag, c.Name, c.CallingCode)
			}
			return tw.Flush()
		},
	}
}
