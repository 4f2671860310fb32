package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/code-payments/billing-bridge/billing"
)

// Invoker decorates a billing.Invoker so that every invocation is counted and
// timed. Results and errors pass through untouched.
type Invoker struct {
	next billing.Invoker
	reg  *Registry
}

func NewInvoker(next billing.Invoker, reg *Registry) *Invoker {
	return &Invoker{next: next, reg: reg}
}

func (i *Invoker) Invoke(ctx context.Context, method billing.Method, args map[string]any) (any, error) {
	start := time.Now()
	res, err := i.next.Invoke(ctx, method, args)

	i.reg.LatencySec.WithLabelValues(string(method)).Observe(time.Since(start).Seconds())
	i.reg.Invocations.WithLabelValues(string(method), resultOf(err)).Inc()
	return res, err
}

func resultOf(err error) string {
	var invErr *billing.InvocationError
	switch {
	case err == nil:
		return ResultOK
	case errors.As(err, &invErr):
		return ResultNativeError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ResultCanceled
	default:
		return ResultError
	}
}
