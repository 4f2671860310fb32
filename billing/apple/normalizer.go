package apple

import (
	"encoding/json"
	"fmt"

	"github.com/code-payments/billing-bridge/billing"
)

// Envelope keys used by the iOS SDK.
const (
	subscriptionKey = "subscription"
	itemKey         = "item"
	planKey         = "plan"
)

// Normalizer decodes iOS SDK payloads. The iOS SDK wraps each record under a
// bare entity name and uses camelCase fields.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Platform() billing.Platform {
	return billing.PlatformIOS
}

func (n *Normalizer) SDKKey(c billing.Credentials) string {
	return c.IOSSDKKey
}

type subscription struct {
	ID               string `json:"id"`
	CustomerID       string `json:"customerId"`
	PlanID           string `json:"planId"`
	Status           string `json:"status"`
	PlanAmount       int64  `json:"planAmount"`
	ActivatedAt      int64  `json:"activatedAt,omitempty"`
	CurrentTermStart int64  `json:"currentTermStart,omitempty"`
	CurrentTermEnd   int64  `json:"currentTermEnd,omitempty"`
}

type item struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	Channel string `json:"channel"`
}

type plan struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	InvoiceName  string `json:"invoiceName"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	Period       int    `json:"period"`
	PeriodUnit   string `json:"periodUnit"`
	CurrencyCode string `json:"currencyCode"`
	Status       string `json:"status"`
	Channel      string `json:"channel"`
}

func (n *Normalizer) Subscription(raw json.RawMessage) (*billing.Subscription, error) {
	var s subscription
	if err := billing.UnwrapEnvelope(raw, subscriptionKey, &s); err != nil {
		return nil, err
	}
	if s.ID == "" {
		return nil, fmt.Errorf("%w: subscription id", billing.ErrMissingIdentifier)
	}

	return &billing.Subscription{
		ID:               s.ID,
		CustomerID:       s.CustomerID,
		PlanID:           s.PlanID,
		Status:           s.Status,
		PlanAmount:       s.PlanAmount,
		ActivatedAt:      billing.UnixTime(s.ActivatedAt),
		CurrentTermStart: billing.UnixTime(s.CurrentTermStart),
		CurrentTermEnd:   billing.UnixTime(s.CurrentTermEnd),
	}, nil
}

func (n *Normalizer) Item(raw json.RawMessage) (*billing.Item, error) {
	var i item
	if err := billing.UnwrapEnvelope(raw, itemKey, &i); err != nil {
		return nil, err
	}
	if i.ID == "" {
		return nil, fmt.Errorf("%w: item id", billing.ErrMissingIdentifier)
	}

	return &billing.Item{
		ID:      i.ID,
		Name:    i.Name,
		Type:    i.Type,
		Status:  i.Status,
		Channel: i.Channel,
	}, nil
}

func (n *Normalizer) Plan(raw json.RawMessage) (*billing.Plan, error) {
	var p plan
	if err := billing.UnwrapEnvelope(raw, planKey, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, fmt.Errorf("%w: plan id", billing.ErrMissingIdentifier)
	}

	return &billing.Plan{
		ID:           p.ID,
		Name:         p.Name,
		InvoiceName:  p.InvoiceName,
		Description:  p.Description,
		Price:        p.Price,
		Period:       p.Period,
		PeriodUnit:   p.PeriodUnit,
		CurrencyCode: p.CurrencyCode,
		Status:       p.Status,
		Channel:      p.Channel,
	}, nil
}

func (n *Normalizer) EncodeSubscription(s *billing.Subscription) (json.RawMessage, error) {
	return billing.WrapEnvelope(subscriptionKey, &subscription{
		ID:               s.ID,
		CustomerID:       s.CustomerID,
		PlanID:           s.PlanID,
		Status:           s.Status,
		PlanAmount:       s.PlanAmount,
		ActivatedAt:      billing.UnixSeconds(s.ActivatedAt),
		CurrentTermStart: billing.UnixSeconds(s.CurrentTermStart),
		CurrentTermEnd:   billing.UnixSeconds(s.CurrentTermEnd),
	})
}

func (n *Normalizer) EncodeItem(i *billing.Item) (json.RawMessage, error) {
	return billing.WrapEnvelope(itemKey, &item{
		ID:      i.ID,
		Name:    i.Name,
		Type:    i.Type,
		Status:  i.Status,
		Channel: i.Channel,
	})
}

func (n *Normalizer) EncodePlan(p *billing.Plan) (json.RawMessage, error) {
	return billing.WrapEnvelope(planKey, &plan{
		ID:           p.ID,
		Name:         p.Name,
		InvoiceName:  p.InvoiceName,
		Description:  p.Description,
		Price:        p.Price,
		Period:       p.Period,
		PeriodUnit:   p.PeriodUnit,
		CurrencyCode: p.CurrencyCode,
		Status:       p.Status,
		Channel:      p.Channel,
	})
}
