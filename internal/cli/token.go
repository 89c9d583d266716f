package cli

import (
	"fmt"
	"runtime"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

type tokenClaims struct {
	Subject   string         `json:"sub,omitempty"`
	Email     string         `json:"email,omitempty"`
	Role      string         `json:"role,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Claims    map[string]any `json:"claims"`
}

func (a *app) tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Work with access tokens locally",
	}

	inspect := &cobra.Command{
		Use:   "inspect JWT",
		Short: "Print the claims of an access token without verifying its signature",
		Long: `Print the claims of an access token.

The signature is NOT verified; use this only to look at tokens you already trust.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			claims := jwt.MapClaims{}
			if _, _, err := jwt.NewParser().ParseUnverified(trimBearer(args[0]), claims); err != nil {
				return fmt.Errorf("parse token: %w", err)
			}

			out := tokenClaims{Claims: claims}
			out.Subject, _ = claims.GetSubject()
			out.Email, _ = claims["email"].(string)
			out.Role, _ = claims["role"].(string)
			if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
				t := exp.UTC()
				out.ExpiresAt = &t
			}
			return printJSON(cmd, out)
		},
	}
	cmd.AddCommand(inspect)
	return cmd
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationOffline: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd, map[string]string{
				"version":   a.version,
				"goVersion": runtime.Version(),
				"platform":  runtime.GOOS + "/" + runtime.GOARCH,
			})
		},
	}
}
