package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/code-payments/billing-bridge/billing"
	"github.com/code-payments/billing-bridge/query"
)

type queryFunc func(ctx context.Context, client *billing.Client, params map[string]string) (any, error)

func queryCmd(use, short string, run queryFunc) *cobra.Command {
	var (
		filters map[string]string
		limit   int
		offset  string
		order   string
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []query.Option{query.WithLimit(limit), query.WithOffset(offset)}
			switch order {
			case "":
			case "asc":
				opts = append(opts, query.WithAscending())
			case "desc":
				opts = append(opts, query.WithDescending())
			default:
				return fmt.Errorf("invalid order: %q", order)
			}
			for k, v := range filters {
				opts = append(opts, query.WithFilter(k, v))
			}
			params := query.ApplyOptions(opts...).Params()

			return runWithClient(cmd, func(ctx context.Context, client *billing.Client) (any, error) {
				return run(ctx, client, params)
			})
		},
	}
	cmd.Flags().StringToStringVar(&filters, "param", nil, "query parameter, e.g. --param customer_id=cust_1")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records")
	cmd.Flags().StringVar(&offset, "offset", "", "decimal index of the first record")
	cmd.Flags().StringVar(&order, "order", "", "asc or desc")
	return cmd
}

func subscriptionsCmd() *cobra.Command {
	return queryCmd("subscriptions", "List subscriptions", func(ctx context.Context, client *billing.Client, params map[string]string) (any, error) {
		return client.RetrieveSubscriptions(ctx, params)
	})
}

func productIDsCmd() *cobra.Command {
	return queryCmd("product-ids", "List product identifiers", func(ctx context.Context, client *billing.Client, params map[string]string) (any, error) {
		return client.RetrieveProductIdentifiers(ctx, params)
	})
}

func entitlementsCmd() *cobra.Command {
	return queryCmd("entitlements", "List entitlements", func(ctx context.Context, client *billing.Client, params map[string]string) (any, error) {
		return client.RetrieveEntitlements(ctx, params)
	})
}

func itemsCmd() *cobra.Command {
	return queryCmd("items", "List catalog items", func(ctx context.Context, client *billing.Client, params map[string]string) (any, error) {
		return client.RetrieveAllItems(ctx, params)
	})
}

func plansCmd() *cobra.Command {
	return queryCmd("plans", "List catalog plans", func(ctx context.Context, client *billing.Client, params map[string]string) (any, error) {
		return client.RetrieveAllPlans(ctx, params)
	})
}
