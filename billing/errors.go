package billing

import (
	"errors"
	"fmt"
)

// Each Client operation fails with exactly one of these kinds, wrapping the
// underlying *InvocationError or *DecodeError.
var (
	ErrAuthConfiguration = errors.New("auth configuration failed")
	ErrProductLookup     = errors.New("product lookup failed")
	ErrPurchase          = errors.New("purchase failed")
	ErrSubscriptionQuery = errors.New("subscription query failed")
	ErrCatalogQuery      = errors.New("catalog query failed")
)

var (
	// ErrEmptyPurchaseResult is returned instead of the empty sentinel result
	// when the client is built with WithStrictPurchases.
	ErrEmptyPurchaseResult = errors.New("empty purchase result")

	ErrMissingEnvelope   = errors.New("missing envelope")
	ErrMissingIdentifier = errors.New("missing identifier")
)

// InvocationError is a failure reported by the native layer. The code is
// propagated verbatim and never interpreted.
type InvocationError struct {
	Method  Method
	Code    string
	Message string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s: native error %s: %s", e.Method, e.Code, e.Message)
}

// DecodeError reports a response payload that could not be turned into a
// domain record. Index is the list position of the offending element, or -1
// when the payload as a whole was malformed.
type DecodeError struct {
	Entity string
	Index  int
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("decode %s: %v", e.Entity, e.Err)
	}
	return fmt.Sprintf("decode %s[%d]: %v", e.Entity, e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
