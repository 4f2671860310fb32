package memory_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/billing-bridge/billing"
	"github.com/code-payments/billing-bridge/billing/android"
	"github.com/code-payments/billing-bridge/billing/apple"
	"github.com/code-payments/billing-bridge/billing/memory"
	"github.com/code-payments/billing-bridge/billing/tests"
)

func direct(_ *testing.T, sandbox *memory.Invoker) billing.Invoker {
	return sandbox
}

func TestClient_MemoryApple(t *testing.T) {
	tests.RunClientTests(t, apple.NewNormalizer(), direct, func() {})
}

func TestClient_MemoryAndroid(t *testing.T) {
	tests.RunClientTests(t, android.NewNormalizer(), direct, func() {})
}

func TestInvoker_WithoutAuthentication(t *testing.T) {
	sandbox := memory.NewInvoker(apple.NewNormalizer(), tests.NewCatalog(), memory.WithoutAuthentication())

	res, err := sandbox.Invoke(context.Background(), billing.MethodGetEntitlements, nil)
	require.NoError(t, err)
	require.JSONEq(t, `{"entitlements":["premium","ad_free"]}`, res.(string))
}

func TestInvoker_Reset(t *testing.T) {
	ctx := context.Background()
	sandbox := memory.NewInvoker(android.NewNormalizer(), tests.NewCatalog())

	_, err := sandbox.Invoke(ctx, billing.MethodAuthenticate, map[string]any{
		billing.ArgSite:   "site",
		billing.ArgAPIKey: "key",
		billing.ArgSDKKey: "sdk",
	})
	require.NoError(t, err)
	sandbox.FailWith(billing.MethodRetrieveAllItems, "boom", "boom")

	sandbox.Reset()
	require.Empty(t, sandbox.History())
	require.Empty(t, sandbox.Site())

	_, err = sandbox.Invoke(ctx, billing.MethodRetrieveAllItems, nil)
	var invErr *billing.InvocationError
	require.ErrorAs(t, err, &invErr)
	require.Equal(t, memory.CodeNotConfigured, invErr.Code)
}

func TestInvoker_PurchaseTerm(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, time.January, 31, 12, 30, 15, 500, time.UTC)
	catalog := tests.NewCatalog()

	sandbox := memory.NewInvoker(
		android.NewNormalizer(),
		catalog,
		memory.WithoutAuthentication(),
		memory.WithClock(func() time.Time { return now }),
	)

	res, err := sandbox.Invoke(ctx, billing.MethodPurchaseProduct, map[string]any{
		billing.ArgProduct:    "pro.yearly",
		billing.ArgCustomerID: "cust_yearly",
	})
	require.NoError(t, err)

	result, err := billing.DecodePurchaseResult([]byte(res.(string)))
	require.NoError(t, err)
	require.Equal(t, "pro.yearly", result.ProductID)

	res, err = sandbox.Invoke(ctx, billing.MethodRetrieveSubscriptions, map[string]any{"customer_id": "cust_yearly"})
	require.NoError(t, err)

	var elements []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(res.(string)), &elements))
	require.Len(t, elements, 1)

	subscription, err := android.NewNormalizer().Subscription(elements[0])
	require.NoError(t, err)
	require.Equal(t, result.TransactionID, subscription.ID)
	require.Equal(t, int64(9999), subscription.PlanAmount)
	require.Equal(t, now.Truncate(time.Second), subscription.CurrentTermStart)
	require.Equal(t, now.Truncate(time.Second).AddDate(1, 0, 0), subscription.CurrentTermEnd)

	// The caller's catalog is not modified by purchases.
	require.Len(t, catalog.Subscriptions, 2)
}

func TestInvoker_ProductsAcceptGenericLists(t *testing.T) {
	sandbox := memory.NewInvoker(apple.NewNormalizer(), tests.NewCatalog(), memory.WithoutAuthentication())

	res, err := sandbox.Invoke(context.Background(), billing.MethodGetProducts, map[string]any{
		billing.ArgProductIDs: []any{"coins.100"},
	})
	require.NoError(t, err)
	require.Len(t, res, 1)

	_, err = sandbox.Invoke(context.Background(), billing.MethodGetProducts, map[string]any{
		billing.ArgProductIDs: []any{42},
	})
	var invErr *billing.InvocationError
	require.ErrorAs(t, err, &invErr)
	require.Equal(t, memory.CodeInvalidRequest, invErr.Code)
}

func TestInvoker_Pagination(t *testing.T) {
	ctx := context.Background()
	sandbox := memory.NewInvoker(apple.NewNormalizer(), tests.NewCatalog(), memory.WithoutAuthentication())

	list := func(args map[string]any) []string {
		res, err := sandbox.Invoke(ctx, billing.MethodRetrieveProductIdentifiers, args)
		require.NoError(t, err)

		decoded, err := billing.DecodeProductIdentifierList([]byte(res.(string)))
		require.NoError(t, err)
		return decoded.ProductIdentifiers
	}

	require.Equal(t, []string{"pro.monthly", "pro.yearly", "coins.100"}, list(nil))
	require.Equal(t, []string{"pro.yearly", "coins.100"}, list(map[string]any{"offset": "1"}))
	require.Equal(t, []string{"coins.100", "pro.yearly"}, list(map[string]any{"order": "desc", "limit": "2"}))
	require.Equal(t, []string{}, list(map[string]any{"offset": "7"}))

	_, err := sandbox.Invoke(ctx, billing.MethodRetrieveAllPlans, map[string]any{"offset": "first"})
	var invErr *billing.InvocationError
	require.ErrorAs(t, err, &invErr)
	require.Equal(t, memory.CodeInvalidRequest, invErr.Code)

	res, err := sandbox.Invoke(ctx, billing.MethodRetrieveSubscriptions, map[string]any{
		"status": "cancelled",
		"limit":  "5",
	})
	require.NoError(t, err)

	var elements []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(res.(string)), &elements))
	require.Len(t, elements, 1)

	subscription, err := apple.NewNormalizer().Subscription(elements[0])
	require.NoError(t, err)
	require.Equal(t, "sub_2", subscription.ID)
}

func TestInvoker_CatalogIsCopied(t *testing.T) {
	ctx := context.Background()
	normalizer := android.NewNormalizer()
	catalog := tests.NewCatalog()
	sandbox := memory.NewInvoker(normalizer, catalog, memory.WithoutAuthentication())

	catalog.Subscriptions[0].Status = "expired"
	catalog.Items[0].Name = "Renamed"
	catalog.Plans[0].Price = 1

	first := func(method billing.Method, args map[string]any) json.RawMessage {
		res, err := sandbox.Invoke(ctx, method, args)
		require.NoError(t, err)

		var elements []json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(res.(string)), &elements))
		require.NotEmpty(t, elements)
		return elements[0]
	}

	subscription, err := normalizer.Subscription(first(billing.MethodRetrieveSubscriptions, map[string]any{"subscription_id": "sub_1"}))
	require.NoError(t, err)
	require.Equal(t, "active", subscription.Status)

	item, err := normalizer.Item(first(billing.MethodRetrieveAllItems, nil))
	require.NoError(t, err)
	require.Equal(t, "Pro", item.Name)

	plan, err := normalizer.Plan(first(billing.MethodRetrieveAllPlans, nil))
	require.NoError(t, err)
	require.Equal(t, int64(999), plan.Price)
}
