package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/code-payments/billing-bridge/billing"
)

// purchase <id>: run the purchase flow for a product.
func purchaseCmd() *cobra.Command {
	var customerID string

	cmd := &cobra.Command{
		Use:   "purchase <id>",
		Short: "Purchase a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithClient(cmd, func(ctx context.Context, client *billing.Client) (any, error) {
				return client.PurchaseProduct(ctx, &billing.Product{ID: args[0]}, customerID)
			})
		},
	}
	cmd.Flags().StringVar(&customerID, "customer", "", "customer to bill (derived by the backend when empty)")
	return cmd
}
