package channel

import (
	"context"
	"errors"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/code-payments/billing-bridge/billing"
)

const (
	ServiceName = "billing.channel.v1.MethodChannel"

	invokeFullMethod = "/" + ServiceName + "/Invoke"
)

// MethodChannelServer is the server side of the method channel.
type MethodChannelServer interface {
	Invoke(context.Context, *structpb.Struct) (*structpb.Value, error)
}

// Server exposes a native billing layer over gRPC. Each request is forwarded
// to the underlying invoker exactly once.
type Server struct {
	log     *zap.Logger
	invoker billing.Invoker
}

func NewServer(log *zap.Logger, invoker billing.Invoker) *Server {
	return &Server{
		log:     log,
		invoker: invoker,
	}
}

func (s *Server) Invoke(ctx context.Context, req *structpb.Struct) (*structpb.Value, error) {
	method, args, err := decodeRequest(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid request: %v", err)
	}
	if !method.Valid() {
		return nil, status.Errorf(codes.Unimplemented, "unknown method: %s", method)
	}

	log := s.log.With(zap.String("method", string(method)))

	res, err := s.invoker.Invoke(ctx, method, args)
	if err != nil {
		return nil, toStatus(log, method, err)
	}

	v, err := toValue(res)
	if err != nil {
		log.Warn("Failed to encode result", zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to encode result")
	}
	return v, nil
}

func toStatus(log *zap.Logger, method billing.Method, err error) error {
	var invErr *billing.InvocationError
	switch {
	case errors.As(err, &invErr):
		st, detailErr := status.New(codes.Aborted, invErr.Message).WithDetails(&errdetails.ErrorInfo{
			Reason: invErr.Code,
			Domain: string(method),
		})
		if detailErr != nil {
			log.Warn("Failed to attach error details", zap.Error(detailErr))
			return status.Error(codes.Internal, "failed to encode native error")
		}

		log.Debug("Native layer reported an error", zap.String("code", invErr.Code))
		return st.Err()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		log.Warn("Failed to invoke native method", zap.Error(err))
		return status.Error(codes.Internal, "failed to invoke native method")
	}
}

// Register binds srv to s.
func Register(s grpc.ServiceRegistrar, srv MethodChannelServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MethodChannelServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Invoke",
			Handler:    invokeHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "billing/channel/v1/channel.proto",
}

func invokeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MethodChannelServer).Invoke(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: invokeFullMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(MethodChannelServer).Invoke(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ServerInterceptors returns the interceptor chain every channel server runs
// with: request logging and panic recovery.
func ServerInterceptors(log *zap.Logger) []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{
		grpc_zap.UnaryServerInterceptor(log),
		grpc_recovery.UnaryServerInterceptor(),
	}
}

// NewGRPCServer creates a gRPC server with srv registered behind the default
// interceptor chain.
func NewGRPCServer(log *zap.Logger, srv MethodChannelServer, extra ...grpc.UnaryServerInterceptor) *grpc.Server {
	interceptors := append(ServerInterceptors(log), extra...)

	s := grpc.NewServer(
		grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(interceptors...)),
	)
	Register(s, srv)
	return s
}
