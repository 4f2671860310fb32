package tests

import (
	"github.com/shopspring/decimal"

	"github.com/code-payments/billing-bridge/billing"
	"github.com/code-payments/billing-bridge/billing/memory"
)

var TestCredentials = billing.Credentials{
	Site:              "billing-test",
	PublishableAPIKey: "test_publishable_key",
	IOSSDKKey:         "ios_sdk_key",
	AndroidSDKKey:     "android_sdk_key",
}

// NewCatalog returns a fresh copy of the catalog every suite runs against.
func NewCatalog() memory.Catalog {
	return memory.Catalog{
		Products: []*billing.Product{
			{
				ID:                 "pro.monthly",
				Title:              "Pro (Monthly)",
				Description:        "All pro features, billed monthly",
				Price:              decimal.RequireFromString("9.99"),
				PriceString:        "$9.99",
				CurrencyCode:       "USD",
				SubscriptionPeriod: &billing.Period{Unit: "month", NumberOfUnits: 1},
			},
			{
				ID:                 "pro.yearly",
				Title:              "Pro (Yearly)",
				Description:        "All pro features, billed yearly",
				Price:              decimal.RequireFromString("99.99"),
				PriceString:        "$99.99",
				CurrencyCode:       "USD",
				SubscriptionPeriod: &billing.Period{Unit: "year", NumberOfUnits: 1},
			},
			{
				ID:           "coins.100",
				Title:        "100 Coins",
				Description:  "A pile of coins",
				Price:        decimal.RequireFromString("1.99"),
				PriceString:  "$1.99",
				CurrencyCode: "USD",
			},
		},
		Subscriptions: []*billing.Subscription{
			{
				ID:               "sub_1",
				CustomerID:       "cust_1",
				PlanID:           "pro-monthly-usd",
				Status:           "active",
				PlanAmount:       999,
				ActivatedAt:      billing.UnixTime(1704067200),
				CurrentTermStart: billing.UnixTime(1706745600),
				CurrentTermEnd:   billing.UnixTime(1709251200),
			},
			{
				ID:               "sub_2",
				CustomerID:       "cust_2",
				PlanID:           "pro-yearly-usd",
				Status:           "cancelled",
				PlanAmount:       9999,
				ActivatedAt:      billing.UnixTime(1672531200),
				CurrentTermStart: billing.UnixTime(1672531200),
				CurrentTermEnd:   billing.UnixTime(1704067200),
			},
		},
		Items: []*billing.Item{
			{ID: "pro", Name: "Pro", Type: "plan", Status: "active", Channel: "app_store"},
			{ID: "coins", Name: "Coins", Type: "charge", Status: "active", Channel: "play_store"},
		},
		Plans: []*billing.Plan{
			{
				ID:           "pro-monthly-usd",
				Name:         "Pro Monthly",
				InvoiceName:  "Pro (Monthly)",
				Description:  "Monthly pro plan",
				Price:        999,
				Period:       1,
				PeriodUnit:   "month",
				CurrencyCode: "USD",
				Status:       "active",
				Channel:      "app_store",
			},
			{
				ID:           "pro-yearly-usd",
				Name:         "Pro Yearly",
				InvoiceName:  "Pro (Yearly)",
				Description:  "Yearly pro plan",
				Price:        9999,
				Period:       1,
				PeriodUnit:   "year",
				CurrencyCode: "USD",
				Status:       "active",
				Channel:      "app_store",
			},
		},
		Entitlements: []string{"premium", "ad_free"},
	}
}
