package commands

import (
	"bytes"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/code-payments/billing-bridge/billing"
	"github.com/code-payments/billing-bridge/billing/android"
	"github.com/code-payments/billing-bridge/billing/memory"
	"github.com/code-payments/billing-bridge/channel"
	"github.com/code-payments/billing-bridge/config"
)

func startSandbox(t *testing.T) (string, *memory.Invoker) {
	log := zaptest.NewLogger(t)
	sandbox := memory.NewInvoker(android.NewNormalizer(), demoCatalog())
	serv := channel.NewGRPCServer(log, channel.NewServer(log, sandbox))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = serv.Serve(lis)
	}()
	t.Cleanup(serv.Stop)

	return lis.Addr().String(), sandbox
}

func run(t *testing.T, channelAddr string, args ...string) (string, error) {
	t.Setenv("BILLING_SITE", "acme-test")
	t.Setenv("BILLING_API_KEY", "test_pk")
	t.Setenv("BILLING_ANDROID_SDK_KEY", "android_sdk")
	t.Setenv("BILLING_LOG_LEVEL", "error")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--addr", channelAddr,
		"--platform", "android",
	}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestCommands_Configure(t *testing.T) {
	channelAddr, sandbox := startSandbox(t)

	out, err := run(t, channelAddr, "configure")
	require.NoError(t, err)
	require.Equal(t, "configured acme-test (android)\n", out)
	require.Equal(t, "acme-test", sandbox.Site())
	require.Equal(t, 1, sandbox.Calls(billing.MethodAuthenticate))
}

func TestCommands_Products(t *testing.T) {
	channelAddr, _ := startSandbox(t)

	out, err := run(t, channelAddr, "products", "premium.yearly", "unknown", "premium.monthly")
	require.NoError(t, err)

	var products []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &products))
	require.Len(t, products, 2)
	require.Equal(t, "premium.monthly", products[0]["productId"])
	require.Equal(t, "premium.yearly", products[1]["productId"])
	require.Contains(t, products[0]["formattedPrice"], "4.99")
}

func TestCommands_PurchaseThenSubscriptions(t *testing.T) {
	channelAddr, sandbox := startSandbox(t)

	out, err := run(t, channelAddr, "purchase", "premium.yearly", "--customer", "cust_cli")
	require.NoError(t, err)

	var result billing.PurchaseResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, "premium.yearly", result.ProductID)
	require.NotEmpty(t, result.TransactionID)

	out, err = run(t, channelAddr, "subscriptions", "--param", "customer_id=cust_cli")
	require.NoError(t, err)

	var subscriptions []billing.Subscription
	require.NoError(t, json.Unmarshal([]byte(out), &subscriptions))
	require.Len(t, subscriptions, 1)
	require.Equal(t, result.TransactionID, subscriptions[0].ID)
	require.Equal(t, int64(4999), subscriptions[0].PlanAmount)

	require.Equal(t, 1, sandbox.Calls(billing.MethodPurchaseProduct))
}

func TestCommands_Catalog(t *testing.T) {
	channelAddr, _ := startSandbox(t)

	out, err := run(t, channelAddr, "product-ids", "--limit", "1")
	require.NoError(t, err)
	require.JSONEq(t, `["premium.monthly"]`, out)

	out, err = run(t, channelAddr, "entitlements")
	require.NoError(t, err)
	require.JSONEq(t, `["premium"]`, out)

	out, err = run(t, channelAddr, "plans")
	require.NoError(t, err)
	var plans []billing.Plan
	require.NoError(t, json.Unmarshal([]byte(out), &plans))
	require.Len(t, plans, 2)

	out, err = run(t, channelAddr, "plans", "--order", "desc", "--limit", "1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &plans))
	require.Len(t, plans, 1)
	require.Equal(t, "premium-yearly-usd", plans[0].ID)

	out, err = run(t, channelAddr, "items")
	require.NoError(t, err)
	var items []billing.Item
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 2)
}

func TestCommands_NativeErrors(t *testing.T) {
	channelAddr, sandbox := startSandbox(t)
	sandbox.FailWith(billing.MethodRetrieveAllPlans, "store_unavailable", "the store is unavailable")

	_, err := run(t, channelAddr, "plans")
	require.ErrorIs(t, err, billing.ErrCatalogQuery)

	var invErr *billing.InvocationError
	require.ErrorAs(t, err, &invErr)
	require.Equal(t, "store_unavailable", invErr.Code)
}

func TestCommands_MissingCredentials(t *testing.T) {
	channelAddr, sandbox := startSandbox(t)
	t.Setenv("BILLING_API_KEY", "")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{
		"--env-file", filepath.Join(t.TempDir(), "missing.env"),
		"--addr", channelAddr,
		"--platform", "android",
		"entitlements",
	})

	err := root.Execute()
	require.ErrorIs(t, err, config.ErrMissingCredentials)
	require.Empty(t, sandbox.History())
}
