package billing_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/billing-bridge/billing"
	"github.com/code-payments/billing-bridge/billing/android"
	"github.com/code-payments/billing-bridge/billing/apple"
)

// The same logical record in each platform's native shape must normalize to
// identical domain records.
func TestNormalizers_CrossPlatform(t *testing.T) {
	ios := apple.NewNormalizer()
	droid := android.NewNormalizer()

	t.Run("Subscription", func(t *testing.T) {
		fromIOS, err := ios.Subscription(json.RawMessage(`{"subscription":{
			"id":"sub_42","customerId":"cust_42","planId":"pro-monthly-usd","status":"active",
			"planAmount":999,"activatedAt":1704067200,"currentTermStart":1706745600,"currentTermEnd":1709251200}}`))
		require.NoError(t, err)

		fromAndroid, err := droid.Subscription(json.RawMessage(`{"cb_subscription":{
			"subscription_id":"sub_42","customer_id":"cust_42","plan_id":"pro-monthly-usd","status":"active",
			"plan_amount":999,"activated_at":1704067200,"current_term_start":1706745600,"current_term_end":1709251200}}`))
		require.NoError(t, err)

		require.Equal(t, fromIOS, fromAndroid)
		require.Equal(t, "sub_42", fromIOS.ID)
	})

	t.Run("SubscriptionWithoutTimestamps", func(t *testing.T) {
		fromIOS, err := ios.Subscription(json.RawMessage(`{"subscription":{"id":"sub_1","status":"future"}}`))
		require.NoError(t, err)

		fromAndroid, err := droid.Subscription(json.RawMessage(`{"cb_subscription":{"subscription_id":"sub_1","status":"future"}}`))
		require.NoError(t, err)

		require.Equal(t, fromIOS, fromAndroid)
		require.True(t, fromIOS.ActivatedAt.IsZero())
	})

	t.Run("Item", func(t *testing.T) {
		fromIOS, err := ios.Item(json.RawMessage(`{"item":{"id":"pro","name":"Pro","type":"plan","status":"active","channel":"app_store"}}`))
		require.NoError(t, err)

		fromAndroid, err := droid.Item(json.RawMessage(`{"cb_item":{"id":"pro","name":"Pro","type":"plan","status":"active","channel":"app_store"}}`))
		require.NoError(t, err)

		require.Equal(t, fromIOS, fromAndroid)
	})

	t.Run("Plan", func(t *testing.T) {
		fromIOS, err := ios.Plan(json.RawMessage(`{"plan":{"id":"pro-monthly-usd","name":"Pro Monthly","invoiceName":"Pro (Monthly)",
			"description":"Monthly","price":999,"period":1,"periodUnit":"month","currencyCode":"USD","status":"active","channel":"app_store"}}`))
		require.NoError(t, err)

		fromAndroid, err := droid.Plan(json.RawMessage(`{"cb_plan":{"id":"pro-monthly-usd","name":"Pro Monthly","invoice_name":"Pro (Monthly)",
			"description":"Monthly","price":999,"period":1,"period_unit":"month","currency_code":"USD","status":"active","channel":"app_store"}}`))
		require.NoError(t, err)

		require.Equal(t, fromIOS, fromAndroid)
	})

	t.Run("Encoders", func(t *testing.T) {
		expected := &billing.Subscription{ID: "sub_7", CustomerID: "cust_7", Status: "active", ActivatedAt: billing.UnixTime(1704067200)}

		rawIOS, err := ios.EncodeSubscription(expected)
		require.NoError(t, err)
		rawAndroid, err := droid.EncodeSubscription(expected)
		require.NoError(t, err)
		require.NotEqual(t, string(rawIOS), string(rawAndroid))

		fromIOS, err := ios.Subscription(rawIOS)
		require.NoError(t, err)
		fromAndroid, err := droid.Subscription(rawAndroid)
		require.NoError(t, err)
		require.Equal(t, fromIOS, fromAndroid)
	})

	t.Run("MissingEnvelope", func(t *testing.T) {
		for _, raw := range []string{`{}`, `{"subscription":null}`, `{"cb_subscription":null}`} {
			_, err := ios.Subscription(json.RawMessage(raw))
			require.ErrorIs(t, err, billing.ErrMissingEnvelope, raw)

			_, err = droid.Subscription(json.RawMessage(raw))
			require.ErrorIs(t, err, billing.ErrMissingEnvelope, raw)
		}

		_, err := droid.Item(json.RawMessage(`{"item":{"id":"pro"}}`))
		require.ErrorIs(t, err, billing.ErrMissingEnvelope)
		require.Contains(t, err.Error(), "cb_item")

		_, err = ios.Plan(json.RawMessage(`{"cb_plan":{"id":"pro-monthly-usd"}}`))
		require.ErrorIs(t, err, billing.ErrMissingEnvelope)
		require.Contains(t, err.Error(), "plan")
	})
}

func TestEnvelope(t *testing.T) {
	raw, err := billing.WrapEnvelope("cb_item", map[string]string{"id": "pro"})
	require.NoError(t, err)
	require.JSONEq(t, `{"cb_item":{"id":"pro"}}`, string(raw))

	var inner struct {
		ID string `json:"id"`
	}
	require.NoError(t, billing.UnwrapEnvelope(raw, "cb_item", &inner))
	require.Equal(t, "pro", inner.ID)

	err = billing.UnwrapEnvelope(raw, "item", &inner)
	require.ErrorIs(t, err, billing.ErrMissingEnvelope)

	err = billing.UnwrapEnvelope(json.RawMessage(`[1]`), "cb_item", &inner)
	require.Error(t, err)
	require.NotErrorIs(t, err, billing.ErrMissingEnvelope)
}

func TestRecords_JSON(t *testing.T) {
	raw, err := json.Marshal(&billing.Subscription{ID: "sub_1", CustomerID: "cust_1", PlanID: "pro", PlanAmount: 999})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Equal(t, "sub_1", fields["id"])
	require.Equal(t, "cust_1", fields["customerId"])
	require.Equal(t, "pro", fields["planId"])
	require.EqualValues(t, 999, fields["planAmount"])
	require.Contains(t, fields, "currentTermEnd")

	raw, err = json.Marshal(&billing.Plan{ID: "pro-monthly-usd", InvoiceName: "Pro", PeriodUnit: "month", CurrencyCode: "USD"})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Equal(t, "Pro", fields["invoiceName"])
	require.Equal(t, "month", fields["periodUnit"])
	require.Equal(t, "USD", fields["currencyCode"])

	raw, err = json.Marshal(&billing.Item{ID: "pro", Channel: "app_store"})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"pro","name":"","type":"","status":"","channel":"app_store"}`, string(raw))
}
