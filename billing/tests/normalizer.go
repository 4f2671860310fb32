package tests

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/billing-bridge/billing"
	"github.com/code-payments/billing-bridge/billing/memory"
)

// Codec is a platform normalizer that can also produce its own payloads.
type Codec interface {
	billing.Normalizer
	memory.Encoder
}

func RunNormalizerTests(t *testing.T, codec Codec, teardown func()) {
	for _, tf := range []func(t *testing.T, codec Codec){
		testNormalizer_RoundTrip,
		testNormalizer_MissingEnvelope,
		testNormalizer_MissingIdentifier,
		testNormalizer_Malformed,
	} {
		tf(t, codec)
		teardown()
	}
}

func testNormalizer_RoundTrip(t *testing.T, codec Codec) {
	catalog := NewCatalog()

	for _, expected := range catalog.Subscriptions {
		raw, err := codec.EncodeSubscription(expected)
		require.NoError(t, err)

		actual, err := codec.Subscription(raw)
		require.NoError(t, err)
		require.Equal(t, expected, actual)
	}

	for _, expected := range catalog.Items {
		raw, err := codec.EncodeItem(expected)
		require.NoError(t, err)

		actual, err := codec.Item(raw)
		require.NoError(t, err)
		require.Equal(t, expected, actual)
	}

	for _, expected := range catalog.Plans {
		raw, err := codec.EncodePlan(expected)
		require.NoError(t, err)

		actual, err := codec.Plan(raw)
		require.NoError(t, err)
		require.Equal(t, expected, actual)
	}
}

func testNormalizer_MissingEnvelope(t *testing.T, codec Codec) {
	for _, raw := range []string{`{}`, `null`, `{"unrelated":{"id":"x"}}`} {
		_, err := codec.Subscription(json.RawMessage(raw))
		require.ErrorIs(t, err, billing.ErrMissingEnvelope, raw)

		_, err = codec.Item(json.RawMessage(raw))
		require.ErrorIs(t, err, billing.ErrMissingEnvelope, raw)

		_, err = codec.Plan(json.RawMessage(raw))
		require.ErrorIs(t, err, billing.ErrMissingEnvelope, raw)
	}
}

func testNormalizer_MissingIdentifier(t *testing.T, codec Codec) {
	raw, err := codec.EncodeSubscription(&billing.Subscription{Status: "active"})
	require.NoError(t, err)
	_, err = codec.Subscription(raw)
	require.ErrorIs(t, err, billing.ErrMissingIdentifier)

	raw, err = codec.EncodeItem(&billing.Item{Name: "nameless"})
	require.NoError(t, err)
	_, err = codec.Item(raw)
	require.ErrorIs(t, err, billing.ErrMissingIdentifier)

	raw, err = codec.EncodePlan(&billing.Plan{Name: "nameless"})
	require.NoError(t, err)
	_, err = codec.Plan(raw)
	require.ErrorIs(t, err, billing.ErrMissingIdentifier)
}

func testNormalizer_Malformed(t *testing.T, codec Codec) {
	for _, raw := range []string{`"subscription"`, `[1,2]`, `{"subscription":`} {
		_, err := codec.Subscription(json.RawMessage(raw))
		require.Error(t, err, raw)

		_, err = codec.Item(json.RawMessage(raw))
		require.Error(t, err, raw)

		_, err = codec.Plan(json.RawMessage(raw))
		require.Error(t, err, raw)
	}
}
