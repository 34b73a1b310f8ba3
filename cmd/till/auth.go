package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/till/internal/api"
	"github.com/Veraticus/till/internal/cli"
	"github.com/Veraticus/till/internal/common"
	"github.com/Veraticus/till/internal/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to your account",
		Long: `Sign in with your email and password. The session is saved locally so
later commands do not ask again until it expires.`,
		RunE: runLogin,
	}

	cmd.Flags().String("email", "", "account email")

	return cmd
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	sessions, err := initSessionStore(settings)
	if err != nil {
		return err
	}

	prompter := cli.NewPrompter(cmd.InOrStdin(), out)

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		if email, err = prompter.AskRequired(ctx, "Email"); err != nil {
			return err
		}
	}
	password, err := readPassword(ctx, prompter, "Password")
	if err != nil {
		return err
	}

	client, err := initClient(settings, "")
	if err != nil {
		return err
	}

	spin := cli.StartSpinner(cmd.ErrOrStderr(), "Signing in...")
	result, err := client.Login(ctx, strings.TrimSpace(email), password)
	spin.Stop()
	if err != nil {
		return common.NewUserError(loginMessage(err), err)
	}

	if err := sessions.Save(&session.Session{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		UserID:       result.User.ID,
		Email:        result.User.Email,
	}); err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatSuccess("Signed in as "+result.User.Email))
	return nil
}

func loginMessage(err error) string {
	var remote *api.RemoteError
	if errors.As(err, &remote) && remote.StatusCode < 500 {
		if remote.Message != "" {
			return remote.Message
		}
		return "Invalid email or password."
	}
	return api.UserMessage(err)
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			settings, err := loadSettings()
			if err != nil {
				return err
			}
			sessions, err := initSessionStore(settings)
			if err != nil {
				return err
			}

			sess, err := sessions.Load()
			if errors.Is(err, common.ErrNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Not logged in."))
				return nil
			}
			if err != nil {
				return err
			}

			// The local session goes regardless of what the server says.
			if client, clientErr := initClient(settings, sess.AccessToken); clientErr == nil {
				if logoutErr := client.Logout(ctx); logoutErr != nil {
					slog.Debug("Server logout failed", "error", logoutErr)
				}
			}
			if store, storeErr := initStorage(ctx, settings); storeErr == nil {
				if clearErr := store.ClearSnapshot(ctx, sess.UserID); clearErr != nil {
					slog.Warn("Failed to clear cached snapshot", "error", clearErr)
				}
				_ = store.Close()
			}
			if err := sessions.Clear(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Signed out."))
			return nil
		},
	}
}

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			settings, err := loadSettings()
			if err != nil {
				return err
			}

			prompter := cli.NewPrompter(cmd.InOrStdin(), out)

			fullName, _ := cmd.Flags().GetString("name")
			if fullName == "" {
				if fullName, err = prompter.AskRequired(ctx, "Full name"); err != nil {
					return err
				}
			}
			email, _ := cmd.Flags().GetString("email")
			if email == "" {
				if email, err = prompter.AskRequired(ctx, "Email"); err != nil {
					return err
				}
			}
			password, err := readPassword(ctx, prompter, "Password")
			if err != nil {
				return err
			}
			confirm, err := readPassword(ctx, prompter, "Confirm password")
			if err != nil {
				return err
			}
			if password != confirm {
				return common.NewUserError("Passwords do not match.", nil)
			}

			client, err := initClient(settings, "")
			if err != nil {
				return err
			}

			user, err := client.Register(ctx, strings.TrimSpace(email), password, strings.TrimSpace(fullName))
			if err != nil {
				return common.NewUserError(api.UserMessage(err), err)
			}

			fmt.Fprintln(out, cli.FormatSuccess("Account created for "+user.Email))
			fmt.Fprintln(out, cli.FormatInfo("Run `till login` to sign in."))
			return nil
		},
	}

	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("name", "", "full name")

	return cmd
}

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			user, profile, err := env.client.Me(ctx)
			if err != nil {
				return env.authError(err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.LabelStyle.Render("Email")+user.Email)
			fmt.Fprintln(out, cli.LabelStyle.Render("User ID")+user.ID)
			if profile != nil && profile.FullName != "" {
				fmt.Fprintln(out, cli.LabelStyle.Render("Name")+profile.FullName)
			}
			return nil
		},
	}
}

func resetPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Email a password reset link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			settings, err := loadSettings()
			if err != nil {
				return err
			}

			email, _ := cmd.Flags().GetString("email")
			if email == "" {
				prompter := cli.NewPrompter(cmd.InOrStdin(), out)
				if email, err = prompter.AskRequired(ctx, "Email"); err != nil {
					return err
				}
			}

			client, err := initClient(settings, "")
			if err != nil {
				return err
			}
			if err := client.ResetPassword(ctx, strings.TrimSpace(email)); err != nil {
				return common.NewUserError(api.UserMessage(err), err)
			}

			fmt.Fprintln(out, cli.FormatSuccess("If an account exists for "+email+", a reset link is on its way."))
			return nil
		},
	}

	cmd.Flags().String("email", "", "account email")

	return cmd
}

// readPassword reads a secret without echo when stdin is a terminal, and
// as a plain line otherwise.
func readPassword(ctx context.Context, prompter *cli.Prompter, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompter.AskRequired(ctx, label)
	}

	fmt.Fprint(prompter.Writer(), cli.FormatPrompt(label)+" ")
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(prompter.Writer())
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
	}
	if len(secret) == 0 {
		return "", common.NewUserError(label+" is required.", nil)
	}
	return string(secret), nil
}
