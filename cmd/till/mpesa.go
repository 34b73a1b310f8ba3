package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/till/internal/api"
	"github.com/Veraticus/till/internal/cli"
	"github.com/Veraticus/till/internal/common"
	"github.com/Veraticus/till/internal/model"
	"github.com/Veraticus/till/internal/service"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func mpesaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mpesa",
		Short: "Follow M-PESA deposit prompts",
	}

	cmd.AddCommand(mpesaStatusCmd())
	cmd.AddCommand(mpesaListCmd())

	return cmd
}

func mpesaStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <reference>",
		Short: "Check whether a payment prompt was approved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			ref := strings.TrimSpace(args[0])
			status, err := env.client.MobileMoneyStatus(ctx, ref)
			if err != nil {
				if errors.Is(err, api.ErrUnauthorized) {
					return env.authError(err)
				}
				return common.NewUserError(api.UserMessage(err), err)
			}

			state := dispatchStatus(status)
			if env.store != nil {
				if err := env.store.UpdateDispatchStatus(ctx, ref, state); err != nil {
					slog.Debug("Dispatch not recorded locally", "reference", ref, "error", err)
				}
			}

			out := cmd.OutOrStdout()
			switch state {
			case model.DispatchCompleted:
				fmt.Fprintln(out, cli.FormatSuccess("Payment approved. The deposit is complete."))
			case model.DispatchFailed:
				msg := "Payment was not completed."
				if status.ResultDescription != "" {
					msg += " " + status.ResultDescription
				}
				fmt.Fprintln(out, cli.FormatError(msg))
			default:
				fmt.Fprintln(out, cli.FormatInfo("Waiting for approval on the phone."))
			}
			return nil
		},
	}
}

func mpesaListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent payment prompts sent from this machine",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			if env.store == nil {
				return common.NewUserError("The local cache is unavailable.", nil)
			}

			limit, _ := cmd.Flags().GetInt("limit")
			dispatches, err := env.store.ListDispatches(ctx, env.session.UserID, limit)
			if err != nil {
				return err
			}
			if len(dispatches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No payment prompts recorded."))
				return nil
			}

			if check, _ := cmd.Flags().GetBool("check"); check {
				refreshDispatches(cmd, env.client, env.store, dispatches)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SENT\tREFERENCE\tAMOUNT\tPHONE\tSTATUS")
			for _, d := range dispatches {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					d.CreatedAt.Local().Format("2006-01-02 15:04"),
					d.CheckoutRequestID,
					cli.FormatMoney(d.Amount),
					"+"+d.Phone,
					d.Status)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntP("limit", "n", 10, "maximum number of prompts to show")
	cmd.Flags().Bool("check", false, "ask the provider for the status of unfinished prompts")

	return cmd
}

// refreshDispatches asks the provider about every unfinished dispatch
// concurrently and stores the answers. Failures leave the entry unchanged.
func refreshDispatches(cmd *cobra.Command, client service.BankingAPI, store service.DispatchStore, dispatches []model.Dispatch) {
	ctx := cmd.Context()
	spin := cli.StartSpinner(cmd.ErrOrStderr(), "Checking payment prompts...")
	defer spin.Stop()

	var g errgroup.Group
	g.SetLimit(4)
	for i := range dispatches {
		d := &dispatches[i]
		if d.Final() {
			continue
		}
		g.Go(func() error {
			status, err := client.MobileMoneyStatus(ctx, d.CheckoutRequestID)
			if err != nil {
				slog.Warn("Failed to check dispatch", "reference", d.CheckoutRequestID, "error", err)
				return nil
			}
			d.Status = dispatchStatus(status)
			if err := store.UpdateDispatchStatus(ctx, d.CheckoutRequestID, d.Status); err != nil {
				slog.Warn("Failed to update dispatch", "reference", d.CheckoutRequestID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// dispatchStatus maps the provider's answer onto a local dispatch status.
// A result code of "0" is success; any other code is a failure.
func dispatchStatus(s service.MobileMoneyStatus) string {
	switch strings.ToLower(s.Status) {
	case "completed", "success", "successful":
		return model.DispatchCompleted
	case "failed", "cancelled", "canceled", "timeout":
		return model.DispatchFailed
	}

	switch s.ResultCode {
	case "":
		return model.DispatchPending
	case "0":
		return model.DispatchCompleted
	default:
		return model.DispatchFailed
	}
}
