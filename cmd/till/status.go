package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/till/internal/cli"
	"github.com/Veraticus/till/internal/common"
	"github.com/spf13/cobra"
)

const healthTimeout = 5 * time.Second

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check that the bank is reachable and show who is signed in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			settings, err := loadSettings()
			if err != nil {
				return err
			}

			fmt.Fprintln(out, cli.LabelStyle.Render("API")+settings.APIURL)

			sessions, err := initSessionStore(settings)
			if err != nil {
				return err
			}
			sess, err := sessions.Load()
			switch {
			case errors.Is(err, common.ErrNoSession):
				fmt.Fprintln(out, cli.LabelStyle.Render("Session")+"not signed in")
			case err != nil:
				return err
			default:
				fmt.Fprintln(out, cli.LabelStyle.Render("Session")+sess.Email)
			}

			client, err := initClient(settings, "")
			if err != nil {
				return err
			}

			healthCtx, cancel := context.WithTimeout(ctx, healthTimeout)
			defer cancel()

			status, err := client.Health(healthCtx)
			if err != nil {
				fmt.Fprintln(out, cli.FormatError("Bank unreachable"))
				return common.NewUserError(fmt.Sprintf("Cannot reach the bank at %s.", settings.APIURL), err)
			}

			if status == "" {
				status = "up"
			}
			fmt.Fprintln(out, cli.FormatSuccess("Bank is "+status))
			return nil
		},
	}
}
