package commands

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/code-payments/billing-bridge/billing"
	"github.com/code-payments/billing-bridge/billing/memory"
)

func demoCatalog() memory.Catalog {
	now := time.Now().UTC().Truncate(time.Second)

	return memory.Catalog{
		Products: []*billing.Product{
			{
				ID:                 "premium.monthly",
				Title:              "Premium (Monthly)",
				Description:        "Premium access, renewed every month",
				Price:              decimal.RequireFromString("4.99"),
				PriceString:        "$4.99",
				CurrencyCode:       "USD",
				SubscriptionPeriod: &billing.Period{Unit: "month", NumberOfUnits: 1},
			},
			{
				ID:                 "premium.yearly",
				Title:              "Premium (Yearly)",
				Description:        "Premium access, renewed every year",
				Price:              decimal.RequireFromString("49.99"),
				PriceString:        "$49.99",
				CurrencyCode:       "USD",
				SubscriptionPeriod: &billing.Period{Unit: "year", NumberOfUnits: 1},
			},
			{
				ID:           "tip.small",
				Title:        "Small Tip",
				Description:  "Say thanks",
				Price:        decimal.RequireFromString("0.99"),
				PriceString:  "€0.99",
				CurrencyCode: "EUR",
			},
		},
		Subscriptions: []*billing.Subscription{
			{
				ID:               "sub_demo",
				CustomerID:       "cust_demo",
				PlanID:           "premium-monthly-usd",
				Status:           "active",
				PlanAmount:       499,
				ActivatedAt:      now.AddDate(0, -3, 0),
				CurrentTermStart: now.AddDate(0, 0, -10),
				CurrentTermEnd:   now.AddDate(0, 1, -10),
			},
		},
		Items: []*billing.Item{
			{ID: "premium", Name: "Premium", Type: "plan", Status: "active", Channel: "app_store"},
			{ID: "tips", Name: "Tips", Type: "charge", Status: "active", Channel: "play_store"},
		},
		Plans: []*billing.Plan{
			{
				ID:           "premium-monthly-usd",
				Name:         "Premium Monthly",
				InvoiceName:  "Premium (Monthly)",
				Price:        499,
				Period:       1,
				PeriodUnit:   "month",
				CurrencyCode: "USD",
				Status:       "active",
				Channel:      "app_store",
			},
			{
				ID:           "premium-yearly-usd",
				Name:         "Premium Yearly",
				InvoiceName:  "Premium (Yearly)",
				Price:        4999,
				Period:       1,
				PeriodUnit:   "year",
				CurrencyCode: "USD",
				Status:       "active",
				Channel:      "app_store",
			},
		},
		Entitlements: []string{"premium"},
	}
}
