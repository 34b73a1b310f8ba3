package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/Veraticus/till/internal/api"
	"github.com/Veraticus/till/internal/cli"
	"github.com/Veraticus/till/internal/common"
	"github.com/Veraticus/till/internal/model"
	"github.com/spf13/cobra"
)

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View or edit your profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			profile, err := env.client.GetProfile(ctx)
			if err != nil {
				return profileError(env, err)
			}
			writeProfile(cmd.OutOrStdout(), profile)
			return nil
		},
	}

	cmd.AddCommand(profileUpdateCmd())

	return cmd
}

func profileUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change your display name or avatar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			nameSet := cmd.Flags().Changed("name")
			avatarSet := cmd.Flags().Changed("avatar")
			clearAvatar, _ := cmd.Flags().GetBool("clear-avatar")
			if !nameSet && !avatarSet && !clearAvatar {
				return common.NewUserError("Nothing to update: pass --name, --avatar or --clear-avatar.", nil)
			}

			env, err := openEnvironment(ctx)
			if err != nil {
				return err
			}
			defer env.Close()

			current, err := env.client.GetProfile(ctx)
			if err != nil {
				return profileError(env, err)
			}

			// The server replaces both fields, so unchanged ones are resent.
			name := current.FullName
			if nameSet {
				name, _ = cmd.Flags().GetString("name")
			}
			var avatar *string
			if current.AvatarURL != "" {
				avatar = &current.AvatarURL
			}
			if avatarSet {
				v, _ := cmd.Flags().GetString("avatar")
				avatar = &v
			}
			if clearAvatar {
				avatar = nil
			}

			updated, err := env.client.UpdateProfile(ctx, name, avatar)
			if err != nil {
				return profileError(env, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatSuccess("Profile updated."))
			writeProfile(out, updated)
			return nil
		},
	}

	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("avatar", "", "avatar image URL")
	cmd.Flags().Bool("clear-avatar", false, "remove the avatar")
	cmd.MarkFlagsMutuallyExclusive("avatar", "clear-avatar")

	return cmd
}

func profileError(env *environment, err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		return env.authError(err)
	}
	return common.NewUserError(api.UserMessage(err), err)
}

func writeProfile(w io.Writer, p *model.Profile) {
	name := p.FullName
	if name == "" {
		name = "(not set)"
	}
	fmt.Fprintln(w, cli.LabelStyle.Render("Name")+name)
	fmt.Fprintln(w, cli.LabelStyle.Render("Email")+p.Email)
	if p.AvatarURL != "" {
		fmt.Fprintln(w, cli.LabelStyle.Render("Avatar")+p.AvatarURL)
	}
	if !p.UpdatedAt.IsZero() {
		fmt.Fprintln(w, cli.LabelStyle.Render("Updated")+p.UpdatedAt.Local().Format("Jan 2, 2006"))
	}
}
