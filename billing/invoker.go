package billing

import (
	"context"
	"fmt"
)

// Method is the name of a native billing SDK call. The set is closed and forms
// the wire protocol with the native layer, so values must never change.
type Method string

const (
	MethodAuthenticate               Method = "authenticate"
	MethodGetProducts                Method = "getProducts"
	MethodPurchaseProduct            Method = "purchaseProduct"
	MethodRetrieveSubscriptions      Method = "retrieveSubscriptions"
	MethodRetrieveProductIdentifiers Method = "retrieveProductIdentifiers"
	MethodGetEntitlements            Method = "getEntitlements"
	MethodRetrieveAllItems           Method = "retrieveAllItems"
	MethodRetrieveAllPlans           Method = "retrieveAllPlans"
)

// Methods lists every wire method in declaration order.
var Methods = []Method{
	MethodAuthenticate,
	MethodGetProducts,
	MethodPurchaseProduct,
	MethodRetrieveSubscriptions,
	MethodRetrieveProductIdentifiers,
	MethodGetEntitlements,
	MethodRetrieveAllItems,
	MethodRetrieveAllPlans,
}

func (m Method) Valid() bool {
	for _, known := range Methods {
		if m == known {
			return true
		}
	}
	return false
}

// Argument keys understood by the native layer. Query operations additionally
// pass free-form query parameters as top-level arguments.
const (
	ArgSite       = "site"
	ArgAPIKey     = "apiKey"
	ArgSDKKey     = "sdkKey"
	ArgProductIDs = "productIDs"
	ArgProduct    = "product"
	ArgCustomerID = "customerId"
)

type Invoker interface {

	// Invoke calls a native SDK method and blocks until it resolves or ctx is
	// done. The raw result is a string, a list of strings, or a primitive.
	//
	// Failures reported by the native layer are returned as *InvocationError.
	Invoke(ctx context.Context, method Method, args map[string]any) (any, error)
}

// InvokerFunc is an adapter to allow the use of ordinary functions as
// Invokers.
type InvokerFunc func(ctx context.Context, method Method, args map[string]any) (any, error)

// Invoke calls f(ctx, method, args).
func (f InvokerFunc) Invoke(ctx context.Context, method Method, args map[string]any) (any, error) {
	return f(ctx, method, args)
}

// StringArg returns the string argument stored under key. Missing keys yield
// an empty string.
func StringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %s: expected string, got %T", key, v)
	}
	return s, nil
}

// StringsArg returns the string list stored under key. Both []string and
// []any holding strings are accepted, the latter being what generic
// transports produce.
func StringsArg(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	return toStrings(v)
}

func toStrings(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: expected string, got %T", i, e)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected list of strings, got %T", v)
	}
}
