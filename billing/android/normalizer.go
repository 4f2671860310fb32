package android

import (
	"encoding/json"
	"fmt"

	"github.com/code-payments/billing-bridge/billing"
)

// Normalizer decodes Android SDK payloads, which wrap every record under a
// "cb_" prefixed key and use snake_case fields.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) Platform() billing.Platform {
	return billing.PlatformAndroid
}

// Envelope keys used by the Android SDK.
const (
	subscriptionKey = "cb_subscription"
	itemKey         = "cb_item"
	planKey         = "cb_plan"
)

func (n *Normalizer) SDKKey(c billing.Credentials) string {
	return c.AndroidSDKKey
}

type subscription struct {
	SubscriptionID   string `json:"subscription_id"`
	CustomerID       string `json:"customer_id"`
	PlanID           string `json:"plan_id"`
	Status           string `json:"status"`
	PlanAmount       int64  `json:"plan_amount"`
	ActivatedAt      int64  `json:"activated_at,omitempty"`
	CurrentTermStart int64  `json:"current_term_start,omitempty"`
	CurrentTermEnd   int64  `json:"current_term_end,omitempty"`
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
	InvoiceName  string `json:"invoice_name"`
	Description  string `json:"description"`
	Price        int64  `json:"price"`
	Period       int    `json:"period"`
	PeriodUnit   string `json:"period_unit"`
	CurrencyCode string `json:"currency_code"`
	Status       string `json:"status"`
	Channel      string `json:"channel"`
}

func (n *Normalizer) Subscription(raw json.RawMessage) (*billing.Subscription, error) {
	var s subscription
	if err := billing.UnwrapEnvelope(raw, subscriptionKey, &s); err != nil {
		return nil, err
	}
	if s.SubscriptionID == "" {
		return nil, fmt.Errorf("%w: subscription_id", billing.ErrMissingIdentifier)
	}

	return &billing.Subscription{
		ID:               s.SubscriptionID,
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
		return nil, fmt.Errorf("%w: id", billing.ErrMissingIdentifier)
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
		return nil, fmt.Errorf("%w: id", billing.ErrMissingIdentifier)
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
		SubscriptionID:   s.ID,
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
