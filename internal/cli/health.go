package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ErlanBelekov/gotrue-go/internal/health"
)

func (a *app) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the auth API is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ping := health.PingFunc(func(ctx context.Context) error {
				_, err := a.client.Health(ctx)
				return err
			})
			checker := health.NewChecker(ping, a.cfg.HTTPTimeout(), a.logger, a.registry)

			result := checker.Readiness(cmd.Context())
			if err := printJSON(cmd, result); err != nil {
				return err
			}
			if result.Status != "up" {
				return fmt.Errorf("auth api is %s", result.Status)
			}
			return nil
		},
	}
}
