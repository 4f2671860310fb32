package channel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/code-payments/billing-bridge/billing"
	"github.com/code-payments/billing-bridge/billing/android"
	"github.com/code-payments/billing-bridge/billing/apple"
	"github.com/code-payments/billing-bridge/billing/memory"
	"github.com/code-payments/billing-bridge/billing/tests"
	"github.com/code-payments/billing-bridge/testutil"
)

func overGRPC(t *testing.T, sandbox *memory.Invoker) billing.Invoker {
	return runChannel(t, sandbox)
}

func runChannel(t *testing.T, invoker billing.Invoker, opts ...testutil.ServerOption) *Client {
	log := zaptest.NewLogger(t)
	serv := NewServer(log, invoker)

	opts = append(opts, testutil.WithService(func(s *grpc.Server) {
		Register(s, serv)
	}))
	cc := testutil.RunGRPCServer(t, opts...)
	return NewClient(log, cc)
}

func TestClient_ChannelApple(t *testing.T) {
	tests.RunClientTests(t, apple.NewNormalizer(), overGRPC, func() {})
}

func TestClient_ChannelAndroid(t *testing.T) {
	tests.RunClientTests(t, android.NewNormalizer(), overGRPC, func() {})
}

func TestChannel_NativeErrorRoundTrip(t *testing.T) {
	client := runChannel(t, billing.InvokerFunc(func(_ context.Context, method billing.Method, _ map[string]any) (any, error) {
		return nil, &billing.InvocationError{Method: method, Code: "E_STORE", Message: "store unavailable"}
	}))

	_, err := client.Invoke(context.Background(), billing.MethodGetEntitlements, nil)

	var invErr *billing.InvocationError
	require.ErrorAs(t, err, &invErr)
	require.Equal(t, billing.MethodGetEntitlements, invErr.Method)
	require.Equal(t, "E_STORE", invErr.Code)
	require.Equal(t, "store unavailable", invErr.Message)
}

func TestChannel_FullMethod(t *testing.T) {
	var clientMethods, serverMethods []string
	client := runChannel(t,
		billing.InvokerFunc(func(_ context.Context, _ billing.Method, _ map[string]any) (any, error) {
			return "ok", nil
		}),
		testutil.WithUnaryClientInterceptor(func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			clientMethods = append(clientMethods, method)
			return invoker(ctx, method, req, reply, cc, opts...)
		}),
		testutil.WithUnaryServerInterceptor(func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			serverMethods = append(serverMethods, info.FullMethod)
			return handler(ctx, req)
		}),
	)

	_, err := client.Invoke(context.Background(), billing.MethodGetEntitlements, nil)
	require.NoError(t, err)
	_, err = client.Invoke(context.Background(), billing.MethodRetrieveAllPlans, nil)
	require.NoError(t, err)

	expected := []string{"/billing.channel.v1.MethodChannel/Invoke", "/billing.channel.v1.MethodChannel/Invoke"}
	require.Equal(t, expected, clientMethods)
	require.Equal(t, expected, serverMethods)
}

func TestChannel_ArgumentsAndResults(t *testing.T) {
	var received map[string]any
	client := runChannel(t, billing.InvokerFunc(func(_ context.Context, method billing.Method, args map[string]any) (any, error) {
		received = args
		switch method {
		case billing.MethodGetProducts:
			return []string{"a", "b"}, nil
		case billing.MethodAuthenticate:
			return nil, nil
		default:
			return "ok", nil
		}
	}))

	res, err := client.Invoke(context.Background(), billing.MethodGetProducts, map[string]any{
		billing.ArgProductIDs: []string{"x", "y"},
		"nested":              map[string]string{"k": "v"},
	})
	require.NoError(t, err)
	require.Equal(t, []any{"a", "b"}, res)
	require.Equal(t, []any{"x", "y"}, received[billing.ArgProductIDs])
	require.Equal(t, map[string]any{"k": "v"}, received["nested"])

	ids, err := billing.StringsArg(received, billing.ArgProductIDs)
	require.NoError(t, err)
	require.Equal(t, []string{"x", "y"}, ids)

	res, err = client.Invoke(context.Background(), billing.MethodAuthenticate, nil)
	require.NoError(t, err)
	require.Nil(t, res)
	require.Empty(t, received)

	res, err = client.Invoke(context.Background(), billing.MethodGetEntitlements, map[string]any{"limit": "10"})
	require.NoError(t, err)
	require.Equal(t, "ok", res)
	require.Equal(t, map[string]any{"limit": "10"}, received)
}

func TestChannel_TransportFailures(t *testing.T) {
	cause := errors.New("bridge detached")
	client := runChannel(t, billing.InvokerFunc(func(_ context.Context, _ billing.Method, _ map[string]any) (any, error) {
		return nil, cause
	}))

	_, err := client.Invoke(context.Background(), billing.MethodRetrieveAllItems, nil)
	require.Error(t, err)
	require.Equal(t, codes.Internal, status.Code(err))

	var invErr *billing.InvocationError
	require.False(t, errors.As(err, &invErr))
}

func TestChannel_Panics(t *testing.T) {
	client := runChannel(t, billing.InvokerFunc(func(_ context.Context, _ billing.Method, _ map[string]any) (any, error) {
		panic("native layer crashed")
	}))

	_, err := client.Invoke(context.Background(), billing.MethodRetrieveAllPlans, nil)
	require.Error(t, err)
	require.Equal(t, codes.Internal, status.Code(err))
}

func TestServer_RejectsMalformedRequests(t *testing.T) {
	serv := NewServer(zaptest.NewLogger(t), billing.InvokerFunc(func(_ context.Context, _ billing.Method, _ map[string]any) (any, error) {
		t.Fatal("invoker must not be called")
		return nil, nil
	}))

	for _, tc := range []struct {
		name string
		req  map[string]any
		code codes.Code
	}{
		{name: "missing method", req: map[string]any{}, code: codes.InvalidArgument},
		{name: "non-string method", req: map[string]any{"method": 1}, code: codes.InvalidArgument},
		{name: "non-object args", req: map[string]any{"method": "getEntitlements", "args": "x"}, code: codes.InvalidArgument},
		{name: "unknown method", req: map[string]any{"method": "refund"}, code: codes.Unimplemented},
	} {
		t.Run(tc.name, func(t *testing.T) {
			req, err := structpb.NewStruct(tc.req)
			require.NoError(t, err)

			_, err = serv.Invoke(context.Background(), req)
			require.Equal(t, tc.code, status.Code(err))
		})
	}
}

func TestServer_ContextErrors(t *testing.T) {
	serv := NewServer(zaptest.NewLogger(t), billing.InvokerFunc(func(ctx context.Context, _ billing.Method, _ map[string]any) (any, error) {
		return nil, context.DeadlineExceeded
	}))

	req, err := encodeRequest(billing.MethodRetrieveAllItems, nil)
	require.NoError(t, err)

	_, err = serv.Invoke(context.Background(), req)
	require.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestCodec(t *testing.T) {
	req, err := encodeRequest(billing.MethodRetrieveSubscriptions, map[string]any{
		"customer_id": "cust_1",
		"ids":         []string{"a"},
	})
	require.NoError(t, err)

	method, args, err := decodeRequest(req)
	require.NoError(t, err)
	require.Equal(t, billing.MethodRetrieveSubscriptions, method)
	require.Equal(t, map[string]any{"customer_id": "cust_1", "ids": []any{"a"}}, args)

	v, err := toValue(nil)
	require.NoError(t, err)
	require.Nil(t, fromValue(v))
	require.Nil(t, fromValue(nil))

	_, err = toValue(struct{}{})
	require.Error(t, err)
}
