package billing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Period is the billing cycle of a subscription product, e.g. 1 "month".
type Period struct {
	Unit          string `json:"periodUnit"`
	NumberOfUnits int    `json:"numberOfUnits"`
}

// Product is a store product as reported by the native SDK. Both platforms
// share this payload shape.
type Product struct {
	ID                 string          `json:"productId"`
	Title              string          `json:"productTitle"`
	Description        string          `json:"productDescription"`
	Price              decimal.Decimal `json:"productPrice"`
	PriceString        string          `json:"productPriceString,omitempty"`
	CurrencyCode       string          `json:"currencyCode"`
	SubscriptionPeriod *Period         `json:"subscriptionPeriod,omitempty"`
}

// DecodeProduct decodes one JSON-encoded product.
func DecodeProduct(data []byte) (*Product, error) {
	var p Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: productId", ErrMissingIdentifier)
	}
	return &p, nil
}

// FormatPrice renders the price with the currency symbol used in the given
// locale. The amount is rounded to the currency's standard scale without
// going through a float, so large or precise prices print exactly.
func (p *Product) FormatPrice(tag language.Tag) (string, error) {
	unit, err := currency.ParseISO(p.CurrencyCode)
	if err != nil {
		return "", fmt.Errorf("invalid currency code %q: %w", p.CurrencyCode, err)
	}

	scale, _ := currency.Standard.Rounding(unit)
	symbol := message.NewPrinter(tag).Sprint(currency.Symbol(unit))
	return symbol + " " + p.Price.StringFixed(int32(scale)), nil
}
