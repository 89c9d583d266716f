package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/gotrue-go/gotrue"
)

func (a *app) userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Read or update the signed-in user",
	}
	cmd.AddCommand(a.userGetCmd(), a.userUpdateCmd())
	return cmd
}

func (a *app) userGetCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the user owning the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.client.GetUser(cmd.Context(), trimBearer(token))
			if err != nil {
				return fmt.Errorf("get user: %w", err)
			}
			return printJSON(cmd, user)
		},
	}
	jwtFlag(cmd, &token)
	return cmd
}

func (a *app) userUpdateCmd() *cobra.Command {
	var (
		token    string
		email    string
		password string
		dataJSON string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update email, password or custom data; unset flags are left unchanged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var attrs gotrue.UserAttributes
			if cmd.Flags().Changed("email") {
				attrs.Email = &email
			}
			if cmd.Flags().Changed("password") {
				attrs.Password = &password
			}
			if dataJSON != "" {
				if err := gotrue.NewJSONSerializer().Deserialize(dataJSON, &attrs.Data); err != nil {
					return fmt.Errorf("--data-json: %w", err)
				}
			}

			user, err := a.client.UpdateUser(cmd.Context(), trimBearer(token), attrs)
			if err != nil {
				return fmt.Errorf("update user: %w", err)
			}
			return printJSON(cmd, user)
		},
	}
	jwtFlag(cmd, &token)
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringVar(&password, "password", "", "new password")
	cmd.Flags().StringVar(&dataJSON, "data-json", "", `custom user data as a JSON object, e.g. '{"admin":true}'`)
	return cmd
}
