package commands

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/code-payments/billing-bridge/billing"
)

type productView struct {
	*billing.Product
	FormattedPrice string `json:"formattedPrice,omitempty"`
}

// products <id>...: look up store products.
func productsCmd() *cobra.Command {
	var locale string

	cmd := &cobra.Command{
		Use:   "products <id>...",
		Short: "Look up store products by identifier",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := language.Parse(locale)
			if err != nil {
				return err
			}

			return runWithClient(cmd, func(ctx context.Context, client *billing.Client) (any, error) {
				products, err := client.RetrieveProducts(ctx, args)
				if err != nil {
					return nil, err
				}

				views := make([]productView, 0, len(products))
				for _, p := range products {
					formatted, err := p.FormatPrice(tag)
					if err != nil {
						formatted = p.PriceString
					}
					views = append(views, productView{Product: p, FormattedPrice: formatted})
				}
				return views, nil
			})
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "en-US", "locale used to format prices")
	return cmd
}
