package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/gotrue-go/gotrue"
)

func (a *app) settingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Print the public settings of the auth API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := a.client.Settings(cmd.Context())
			if err != nil {
				return fmt.Errorf("settings: %w", err)
			}
			return printJSON(cmd, settings)
		},
	}
}

func (a *app) signupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signup EMAIL PASSWORD",
		Short: "Create a user with email and password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client.SignUpWithEmail(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("signup: %w", err)
			}
			return printJSON(cmd, user)
		},
	}
}

func (a *app) inviteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invite EMAIL",
		Short: "Send an invite link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client.InviteUserByEmail(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("invite: %w", err)
			}
			return printJSON(cmd, user)
		},
	}
}

func (a *app) verifyCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "verify TYPE TOKEN",
		Short: "Verify a signup, recovery, invite or magiclink token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, ok := gotrue.ParseVerifyType(args[0])
			if !ok {
				return fmt.Errorf("unknown verify type %q (want signup, recovery, invite or magiclink)", args[0])
			}

			var pw *string
			if cmd.Flags().Changed("password") {
				pw = &password
			}

			token, err := a.client.Verify(cmd.Context(), typ, args[1], pw)
			if err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			return printJSON(cmd, token)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to set while verifying")
	return cmd
}

func (a *app) recoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover EMAIL",
		Short: "Send a password recovery email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.ResetPasswordForEmail(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("recover: %w", err)
			}
			return printJSON(cmd, map[string]string{"status": "sent"})
		},
	}
}

func (a *app) signinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signin EMAIL PASSWORD",
		Short: "Sign in with email and password and print the tokens",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.client.SignInWithEmail(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("signin: %w", err)
			}
			return printJSON(cmd, token)
		},
	}
}

func (a *app) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh REFRESH_TOKEN",
		Short: "Exchange a refresh token for a new access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.client.RefreshAccessToken(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("refresh: %w", err)
			}
			return printJSON(cmd, token)
		},
	}
}

func (a *app) signoutCmd() *cobra.Command {
	var jwt string

	cmd := &cobra.Command{
		Use:   "signout",
		Short: "Revoke all refresh tokens of the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.client.SignOut(cmd.Context(), trimBearer(jwt)); err != nil {
				return fmt.Errorf("signout: %w", err)
			}
			return printJSON(cmd, map[string]string{"status": "signed_out"})
		},
	}
	jwtFlag(cmd, &jwt)
	return cmd
}

func (a *app) magicLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "magiclink EMAIL",
		Short: "Send a passwordless login link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client.SendMagicLinkEmail(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("magiclink: %w", err)
			}
			return printJSON(cmd, map[string]string{"status": "sent"})
		},
	}
}

func jwtFlag(cmd *cobra.Command, jwt *string) {
	cmd.Flags().StringVar(jwt, "jwt", "", "access token of the user")
	_ = cmd.MarkFlagRequired("jwt")
}

// trimBearer lets --jwt take a full header value as well as the bare token.
func trimBearer(jwt string) string {
	return strings.TrimPrefix(jwt, "Bearer ")
}
