package testutil

import (
	"context"
	"net"
	"testing"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// RunGRPCServer starts an in-process gRPC server over a bufconn listener and
// returns a client connection to it. Both are torn down with the test.
func RunGRPCServer(t *testing.T, opts ...ServerOption) grpc.ClientConnInterface {
	lis := bufconn.Listen(1024 * 1024)
	log := zaptest.NewLogger(t)

	o := serverOpts{
		unaryServerInterceptors: []grpc.UnaryServerInterceptor{
			grpc_zap.UnaryServerInterceptor(log),
			grpc_recovery.UnaryServerInterceptor(),
		},
	}

	for _, opt := range opts {
		opt(&o)
	}

	cc, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithChainUnaryInterceptor(o.unaryClientInterceptors...),
	)
	require.NoError(t, err)

	serv := grpc.NewServer(
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(o.unaryServerInterceptors...)),
	)

	for _, r := range o.registrants {
		r(serv)
	}

	go func() {
		if err := serv.Serve(lis); err != nil {
			log.Warn("Failed to shutdown test server", zap.Error(err))
		}
	}()

	t.Cleanup(func() {
		require.NoError(t, cc.Close())
		serv.Stop()
		if err := lis.Close(); err != nil {
			log.Warn("Failed to shutdown test listener", zap.Error(err))
		}
	})

	return cc
}

type serverOpts struct {
	registrants []func(*grpc.Server)

	unaryClientInterceptors []grpc.UnaryClientInterceptor
	unaryServerInterceptors []grpc.UnaryServerInterceptor
}

// ServerOption configures the settings when creating a test server.
type ServerOption func(o *serverOpts)

// WithUnaryClientInterceptor adds a unary client interceptor to the test client.
func WithUnaryClientInterceptor(i grpc.UnaryClientInterceptor) ServerOption {
	return func(o *serverOpts) {
		o.unaryClientInterceptors = append(o.unaryClientInterceptors, i)
	}
}

// WithUnaryServerInterceptor adds a unary server interceptor to the test server.
func WithUnaryServerInterceptor(i grpc.UnaryServerInterceptor) ServerOption {
	return func(o *serverOpts) {
		o.unaryServerInterceptors = append(o.unaryServerInterceptors, i)
	}
}

// WithService registers a function to be called in order to bind a service.
func WithService(f func(*grpc.Server)) ServerOption {
	return func(o *serverOpts) {
		o.registrants = append(o.registrants, f)
	}
}
