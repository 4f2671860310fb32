package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/code-payments/billing-bridge/billing"
)

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Authenticate the native layer with the configured credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithClient(cmd, func(_ context.Context, client *billing.Client) (any, error) {
				fmt.Fprintf(cmd.OutOrStdout(), "configured %s (%s)\n", cfg.Site, client.Platform())
				return nil, nil
			})
		},
	}
}
