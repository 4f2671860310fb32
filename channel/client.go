package channel

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/code-payments/billing-bridge/billing"
)

// Client is a billing.Invoker backed by a remote method channel.
type Client struct {
	log *zap.Logger
	cc  grpc.ClientConnInterface
}

func NewClient(log *zap.Logger, cc grpc.ClientConnInterface) *Client {
	return &Client{
		log: log,
		cc:  cc,
	}
}

func (c *Client) Invoke(ctx context.Context, method billing.Method, args map[string]any) (any, error) {
	req, err := encodeRequest(method, args)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to encode %s request", method)
	}

	resp := new(structpb.Value)
	if err := c.cc.Invoke(ctx, invokeFullMethod, req, resp); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		err = fromStatus(method, err)
		var invErr *billing.InvocationError
		if !errors.As(err, &invErr) {
			c.log.Warn("Method channel call failed", zap.String("method", string(method)), zap.Error(err))
		}
		return nil, err
	}

	return fromValue(resp), nil
}

// fromStatus restores native errors sent by the server, leaving transport
// failures wrapped but otherwise intact.
func fromStatus(method billing.Method, err error) error {
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return errors.Wrapf(err, "failed to invoke %s", method)
	}

	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok {
			return &billing.InvocationError{
				Method:  method,
				Code:    info.GetReason(),
				Message: st.Message(),
			}
		}
	}
	return errors.Wrapf(err, "failed to invoke %s", method)
}
