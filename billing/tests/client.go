package tests

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/code-payments/billing-bridge/billing"
	"github.com/code-payments/billing-bridge/billing/memory"
)

// Transport exposes a sandbox native layer to the client under test, e.g.
// directly, through a gRPC channel or through a decorator.
type Transport func(t *testing.T, sandbox *memory.Invoker) billing.Invoker

// RunClientTests runs the billing.Client suite for one platform codec over
// the given transport.
func RunClientTests(t *testing.T, codec Codec, transport Transport, teardown func()) {
	for _, tf := range []func(t *testing.T, codec Codec, transport Transport){
		testConfigure,
		testNotConfigured,
		testRetrieveProducts,
		testPurchaseProduct,
		testPurchaseProduct_Sentinel,
		testRetrieveSubscriptions,
		testRetrieveProductIdentifiers,
		testRetrieveEntitlements,
		testRetrieveCatalog,
		testInvocationFailures,
		testCanceledContext,
	} {
		tf(t, codec, transport)
		teardown()
	}
}

type harness struct {
	sandbox *memory.Invoker
	client  *billing.Client
}

func setup(t *testing.T, codec Codec, transport Transport, opts ...billing.Option) *harness {
	sandbox := memory.NewInvoker(codec, NewCatalog())
	client := billing.NewClient(zaptest.NewLogger(t), transport(t, sandbox), codec, opts...)
	return &harness{sandbox: sandbox, client: client}
}

func setupConfigured(t *testing.T, codec Codec, transport Transport, opts ...billing.Option) *harness {
	h := setup(t, codec, transport, opts...)
	require.NoError(t, h.client.Configure(context.Background(), TestCredentials))
	return h
}

func requireInvocationError(t *testing.T, err error, kind error, code string) {
	require.ErrorIs(t, err, kind)

	var invErr *billing.InvocationError
	require.True(t, errors.As(err, &invErr), "expected invocation error, got %v", err)
	require.Equal(t, code, invErr.Code)
}

func requireDecodeError(t *testing.T, err error, kind error, index int) {
	require.ErrorIs(t, err, kind)

	var decodeErr *billing.DecodeError
	require.True(t, errors.As(err, &decodeErr), "expected decode error, got %v", err)
	require.Equal(t, index, decodeErr.Index)
}

func testConfigure(t *testing.T, codec Codec, transport Transport) {
	ctx := context.Background()

	t.Run("PlatformKey", func(t *testing.T) {
		h := setup(t, codec, transport)
		require.NoError(t, h.client.Configure(ctx, TestCredentials))
		require.Equal(t, TestCredentials.Site, h.sandbox.Site())

		history := h.sandbox.History()
		require.Len(t, history, 1)
		require.Equal(t, billing.MethodAuthenticate, history[0].Method)
		require.Equal(t, TestCredentials.Site, history[0].Args[billing.ArgSite])
		require.Equal(t, TestCredentials.PublishableAPIKey, history[0].Args[billing.ArgAPIKey])

		expectedKey := TestCredentials.IOSSDKKey
		if codec.Platform() == billing.PlatformAndroid {
			expectedKey = TestCredentials.AndroidSDKKey
		}
		require.Equal(t, expectedKey, history[0].Args[billing.ArgSDKKey])
	})

	t.Run("MissingKey", func(t *testing.T) {
		h := setup(t, codec, transport)

		creds := TestCredentials
		creds.IOSSDKKey = ""
		creds.AndroidSDKKey = ""

		err := h.client.Configure(ctx, creds)
		requireInvocationError(t, err, billing.ErrAuthConfiguration, memory.CodeInvalidCredentials)
		require.Empty(t, h.sandbox.Site())
	})
}

func testNotConfigured(t *testing.T, codec Codec, transport Transport) {
	h := setup(t, codec, transport)

	_, err := h.client.RetrieveProducts(context.Background(), []string{"pro.monthly"})
	requireInvocationError(t, err, billing.ErrProductLookup, memory.CodeNotConfigured)
}

func testRetrieveProducts(t *testing.T, codec Codec, transport Transport) {
	ctx := context.Background()
	catalog := NewCatalog()

	t.Run("InvokerOrder", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		products, err := h.client.RetrieveProducts(ctx, []string{"coins.100", "unknown", "pro.monthly"})
		require.NoError(t, err)
		require.Len(t, products, 2)

		// The sandbox answers in catalog order, not request order.
		for i, expected := range []*billing.Product{catalog.Products[0], catalog.Products[2]} {
			actual := products[i]
			require.Equal(t, expected.ID, actual.ID)
			require.Equal(t, expected.Title, actual.Title)
			require.Equal(t, expected.Description, actual.Description)
			require.True(t, expected.Price.Equal(actual.Price), "%s != %s", expected.Price, actual.Price)
			require.Equal(t, expected.PriceString, actual.PriceString)
			require.Equal(t, expected.CurrencyCode, actual.CurrencyCode)
			require.Equal(t, expected.SubscriptionPeriod, actual.SubscriptionPeriod)
		}
	})

	t.Run("NoIdentifiers", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		_, err := h.client.RetrieveProducts(ctx, nil)
		require.ErrorIs(t, err, billing.ErrProductLookup)
		require.Zero(t, h.sandbox.Calls(billing.MethodGetProducts))
	})

	t.Run("MalformedElement", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)
		h.sandbox.ReturnRaw(billing.MethodGetProducts, []string{
			`{"productId":"pro.monthly","productPrice":9.99,"currencyCode":"USD"}`,
			`{"productId":`,
		})

		_, err := h.client.RetrieveProducts(ctx, []string{"pro.monthly"})
		requireDecodeError(t, err, billing.ErrProductLookup, 1)
	})

	t.Run("NumericPrice", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)
		h.sandbox.ReturnRaw(billing.MethodGetProducts, []string{
			`{"productId":"pro.monthly","productTitle":"Pro","productPrice":9.99,"currencyCode":"USD"}`,
		})

		products, err := h.client.RetrieveProducts(ctx, []string{"pro.monthly"})
		require.NoError(t, err)
		require.Len(t, products, 1)
		require.Equal(t, "9.99", products[0].Price.String())
	})
}

func testPurchaseProduct(t *testing.T, codec Codec, transport Transport) {
	ctx := context.Background()
	catalog := NewCatalog()

	t.Run("CreatesSubscription", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		result, err := h.client.PurchaseProduct(ctx, catalog.Products[0], "cust_9")
		require.NoError(t, err)
		require.False(t, result.IsEmpty())
		require.NotEmpty(t, result.TransactionID)
		require.Equal(t, catalog.Products[0].ID, result.ProductID)
		require.Equal(t, "active", result.Status)

		subscriptions, err := h.client.RetrieveSubscriptions(ctx, map[string]string{"customer_id": "cust_9"})
		require.NoError(t, err)
		require.Len(t, subscriptions, 1)
		require.Equal(t, result.TransactionID, subscriptions[0].ID)
		require.Equal(t, int64(999), subscriptions[0].PlanAmount)
		require.True(t, subscriptions[0].CurrentTermEnd.After(subscriptions[0].CurrentTermStart))
	})

	t.Run("DefaultCustomer", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		result, err := h.client.PurchaseProduct(ctx, catalog.Products[2], "")
		require.NoError(t, err)

		subscriptions, err := h.client.RetrieveSubscriptions(ctx, map[string]string{"subscription_id": result.TransactionID})
		require.NoError(t, err)
		require.Len(t, subscriptions, 1)
		require.True(t, strings.HasPrefix(subscriptions[0].CustomerID, "cust_"))

		history := h.sandbox.History()
		purchase := history[len(history)-2]
		require.Equal(t, billing.MethodPurchaseProduct, purchase.Method)
		require.Equal(t, "", purchase.Args[billing.ArgCustomerID])
	})

	t.Run("RoundTrip", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)
		h.sandbox.ReturnRaw(billing.MethodPurchaseProduct, `{"transactionId":"txn_1","productId":"pro.yearly","status":"in_trial"}`)

		result, err := h.client.PurchaseProduct(ctx, catalog.Products[1], "")
		require.NoError(t, err)
		require.Equal(t, &billing.PurchaseResult{
			TransactionID: "txn_1",
			ProductID:     "pro.yearly",
			Status:        "in_trial",
		}, result)
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		_, err := h.client.PurchaseProduct(ctx, &billing.Product{ID: "missing"}, "")
		requireInvocationError(t, err, billing.ErrPurchase, memory.CodeProductNotFound)
	})

	t.Run("MalformedResult", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)
		h.sandbox.ReturnRaw(billing.MethodPurchaseProduct, `{"transactionId":`)

		_, err := h.client.PurchaseProduct(ctx, catalog.Products[0], "")
		requireDecodeError(t, err, billing.ErrPurchase, -1)
	})
}

func testPurchaseProduct_Sentinel(t *testing.T, codec Codec, transport Transport) {
	ctx := context.Background()
	product := NewCatalog().Products[0]

	t.Run("Default", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)
		h.sandbox.ReturnRaw(billing.MethodPurchaseProduct, "")

		result, err := h.client.PurchaseProduct(ctx, product, "")
		require.NoError(t, err)
		require.True(t, result.IsEmpty())
		require.Equal(t, &billing.PurchaseResult{}, result)
	})

	t.Run("Strict", func(t *testing.T) {
		h := setupConfigured(t, codec, transport, billing.WithStrictPurchases())
		h.sandbox.ReturnRaw(billing.MethodPurchaseProduct, "")

		_, err := h.client.PurchaseProduct(ctx, product, "")
		require.ErrorIs(t, err, billing.ErrPurchase)
		require.ErrorIs(t, err, billing.ErrEmptyPurchaseResult)
	})
}

func testRetrieveSubscriptions(t *testing.T, codec Codec, transport Transport) {
	ctx := context.Background()
	catalog := NewCatalog()

	t.Run("All", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		subscriptions, err := h.client.RetrieveSubscriptions(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, catalog.Subscriptions, subscriptions)
	})

	t.Run("Filtered", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		subscriptions, err := h.client.RetrieveSubscriptions(ctx, map[string]string{"status": "active"})
		require.NoError(t, err)
		require.Equal(t, []*billing.Subscription{catalog.Subscriptions[0]}, subscriptions)

		history := h.sandbox.History()
		require.Equal(t, "active", history[len(history)-1].Args["status"])
	})

	t.Run("Empty", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		subscriptions, err := h.client.RetrieveSubscriptions(ctx, map[string]string{"customer_id": "nobody"})
		require.NoError(t, err)
		require.NotNil(t, subscriptions)
		require.Empty(t, subscriptions)
	})

	t.Run("MalformedElement", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		valid, err := codec.EncodeSubscription(catalog.Subscriptions[0])
		require.NoError(t, err)
		h.sandbox.ReturnRaw(billing.MethodRetrieveSubscriptions, "["+string(valid)+`,{"wrong_envelope":{}}]`)

		_, err = h.client.RetrieveSubscriptions(ctx, nil)
		requireDecodeError(t, err, billing.ErrSubscriptionQuery, 1)
		require.ErrorIs(t, err, billing.ErrMissingEnvelope)
	})

	t.Run("NotAnArray", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)
		h.sandbox.ReturnRaw(billing.MethodRetrieveSubscriptions, `{"list":[]}`)

		_, err := h.client.RetrieveSubscriptions(ctx, nil)
		requireDecodeError(t, err, billing.ErrSubscriptionQuery, -1)
	})
}

func testRetrieveProductIdentifiers(t *testing.T, codec Codec, transport Transport) {
	ctx := context.Background()

	t.Run("Stubbed", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)
		h.sandbox.ReturnRaw(billing.MethodRetrieveProductIdentifiers, `{"productIdentifiers":["a","b"]}`)

		ids, err := h.client.RetrieveProductIdentifiers(ctx, map[string]string{"limit": "10"})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b"}, ids)

		history := h.sandbox.History()
		require.Equal(t, "10", history[len(history)-1].Args["limit"])
	})

	t.Run("Limit", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		ids, err := h.client.RetrieveProductIdentifiers(ctx, map[string]string{"limit": "2"})
		require.NoError(t, err)
		require.Equal(t, []string{"pro.monthly", "pro.yearly"}, ids)

		ids, err = h.client.RetrieveProductIdentifiers(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, []string{"pro.monthly", "pro.yearly", "coins.100"}, ids)
	})

	t.Run("InvalidLimit", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		_, err := h.client.RetrieveProductIdentifiers(ctx, map[string]string{"limit": "many"})
		requireInvocationError(t, err, billing.ErrCatalogQuery, memory.CodeInvalidRequest)
	})

	t.Run("MissingContainer", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)
		h.sandbox.ReturnRaw(billing.MethodRetrieveProductIdentifiers, `{"ids":["a"]}`)

		_, err := h.client.RetrieveProductIdentifiers(ctx, nil)
		requireDecodeError(t, err, billing.ErrCatalogQuery, -1)
		require.ErrorIs(t, err, billing.ErrMissingEnvelope)
	})

	t.Run("NullElement", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)
		h.sandbox.ReturnRaw(billing.MethodRetrieveProductIdentifiers, `{"productIdentifiers":["a",null]}`)

		ids, err := h.client.RetrieveProductIdentifiers(ctx, nil)
		require.Nil(t, ids)
		requireDecodeError(t, err, billing.ErrCatalogQuery, 1)
	})
}

func testRetrieveEntitlements(t *testing.T, codec Codec, transport Transport) {
	ctx := context.Background()

	h := setupConfigured(t, codec, transport)

	entitlements, err := h.client.RetrieveEntitlements(ctx, map[string]string{"subscription_id": "sub_1"})
	require.NoError(t, err)
	require.Equal(t, NewCatalog().Entitlements, entitlements)

	h.sandbox.ReturnRaw(billing.MethodGetEntitlements, `{"entitlements":[]}`)
	entitlements, err = h.client.RetrieveEntitlements(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, entitlements)
	require.Empty(t, entitlements)

	h.sandbox.ReturnRaw(billing.MethodGetEntitlements, `{"entitlements":["premium",7]}`)
	entitlements, err = h.client.RetrieveEntitlements(ctx, nil)
	require.Nil(t, entitlements)
	requireDecodeError(t, err, billing.ErrCatalogQuery, 1)

	h.sandbox.ReturnRaw(billing.MethodGetEntitlements, `{"entitlements":[null]}`)
	_, err = h.client.RetrieveEntitlements(ctx, nil)
	requireDecodeError(t, err, billing.ErrCatalogQuery, 0)
}

func testRetrieveCatalog(t *testing.T, codec Codec, transport Transport) {
	ctx := context.Background()
	catalog := NewCatalog()

	t.Run("Items", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		items, err := h.client.RetrieveAllItems(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, catalog.Items, items)

		items, err = h.client.RetrieveAllItems(ctx, map[string]string{"limit": "1"})
		require.NoError(t, err)
		require.Equal(t, catalog.Items[:1], items)
	})

	t.Run("Plans", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		plans, err := h.client.RetrieveAllPlans(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, catalog.Plans, plans)
	})

	t.Run("EmptyArrays", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)
		h.sandbox.ReturnRaw(billing.MethodRetrieveAllItems, "[]")
		h.sandbox.ReturnRaw(billing.MethodRetrieveAllPlans, "[]")

		items, err := h.client.RetrieveAllItems(ctx, nil)
		require.NoError(t, err)
		require.NotNil(t, items)
		require.Empty(t, items)

		plans, err := h.client.RetrieveAllPlans(ctx, nil)
		require.NoError(t, err)
		require.NotNil(t, plans)
		require.Empty(t, plans)
	})

	t.Run("MalformedElement", func(t *testing.T) {
		h := setupConfigured(t, codec, transport)

		valid, err := codec.EncodePlan(catalog.Plans[0])
		require.NoError(t, err)
		h.sandbox.ReturnRaw(billing.MethodRetrieveAllPlans, "["+string(valid)+","+string(valid)+",null]")

		_, err = h.client.RetrieveAllPlans(ctx, nil)
		requireDecodeError(t, err, billing.ErrCatalogQuery, 2)
	})
}

func testInvocationFailures(t *testing.T, codec Codec, transport Transport) {
	ctx := context.Background()
	product := NewCatalog().Products[0]

	for _, tc := range []struct {
		method billing.Method
		kind   error
		call   func(c *billing.Client) error
	}{
		{billing.MethodGetProducts, billing.ErrProductLookup, func(c *billing.Client) error {
			_, err := c.RetrieveProducts(ctx, []string{product.ID})
			return err
		}},
		{billing.MethodPurchaseProduct, billing.ErrPurchase, func(c *billing.Client) error {
			_, err := c.PurchaseProduct(ctx, product, "")
			return err
		}},
		{billing.MethodRetrieveSubscriptions, billing.ErrSubscriptionQuery, func(c *billing.Client) error {
			_, err := c.RetrieveSubscriptions(ctx, nil)
			return err
		}},
		{billing.MethodRetrieveProductIdentifiers, billing.ErrCatalogQuery, func(c *billing.Client) error {
			_, err := c.RetrieveProductIdentifiers(ctx, nil)
			return err
		}},
		{billing.MethodGetEntitlements, billing.ErrCatalogQuery, func(c *billing.Client) error {
			_, err := c.RetrieveEntitlements(ctx, nil)
			return err
		}},
		{billing.MethodRetrieveAllItems, billing.ErrCatalogQuery, func(c *billing.Client) error {
			_, err := c.RetrieveAllItems(ctx, nil)
			return err
		}},
		{billing.MethodRetrieveAllPlans, billing.ErrCatalogQuery, func(c *billing.Client) error {
			_, err := c.RetrieveAllPlans(ctx, nil)
			return err
		}},
	} {
		t.Run(string(tc.method), func(t *testing.T) {
			h := setupConfigured(t, codec, transport)
			h.sandbox.FailWith(tc.method, "store_unavailable", "the store is unavailable")

			err := tc.call(h.client)
			requireInvocationError(t, err, tc.kind, "store_unavailable")

			var invErr *billing.InvocationError
			require.True(t, errors.As(err, &invErr))
			require.Equal(t, tc.method, invErr.Method)
			require.Equal(t, "the store is unavailable", invErr.Message)

			// No retry.
			require.Equal(t, 1, h.sandbox.Calls(tc.method))
		})
	}

	t.Run("Authenticate", func(t *testing.T) {
		h := setup(t, codec, transport)
		h.sandbox.FailWith(billing.MethodAuthenticate, "network", "offline")

		err := h.client.Configure(ctx, TestCredentials)
		requireInvocationError(t, err, billing.ErrAuthConfiguration, "network")
		require.Equal(t, 1, h.sandbox.Calls(billing.MethodAuthenticate))
	})
}

func testCanceledContext(t *testing.T, codec Codec, transport Transport) {
	h := setupConfigured(t, codec, transport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.client.RetrieveAllItems(ctx, nil)
	require.ErrorIs(t, err, billing.ErrCatalogQuery)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, h.sandbox.Calls(billing.MethodRetrieveAllItems))
}
