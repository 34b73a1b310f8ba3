package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/till/internal/intent"
	"github.com/Veraticus/till/internal/tui"
	"github.com/spf13/cobra"
)

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"ui"},
		Short:   "Open the interactive dashboard",
		Long: `Open a full-screen dashboard with your balance, history and forms for
withdrawals and deposits. Every transfer asks for confirmation before it is
sent.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			// Paint cached data first; the dashboard refreshes on start.
			if _, err := env.account.LoadCached(ctx); err != nil {
				slog.Debug("No cached snapshot", "error", err)
			}

			pipeline, err := intent.NewPipeline(intent.Config{
				Transfers:      env.client,
				Account:        env.account,
				Validator:      intent.NewValidator(intent.DefaultLimits(), env.catalog),
				ConfirmTimeout: env.settings.ConfirmTimeout,
			})
			if err != nil {
				return err
			}

			err = tui.Run(ctx,
				tui.WithPipeline(pipeline),
				tui.WithAccount(env.account),
				tui.WithCatalog(env.catalog),
				tui.WithUser(env.session.Email),
				tui.WithDefaultCountry(env.settings.DefaultCountry),
			)
			if err != nil && !errors.Is(err, ctx.Err()) {
				return fmt.Errorf("dashboard failed: %w", err)
			}
			return nil
		},
	}
}
