package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type Option func(*clientOpts)

type clientOpts struct {
	strictPurchases bool
}

// WithStrictPurchases makes PurchaseProduct fail with ErrEmptyPurchaseResult
// when the native layer answers with an empty string, instead of returning
// the empty sentinel result.
func WithStrictPurchases() Option {
	return func(o *clientOpts) {
		o.strictPurchases = true
	}
}

// Client is the typed facade over a native billing SDK. Every operation
// issues exactly one invocation and performs no retry or caching.
//
// Configure must be called before any other operation. The client itself
// holds no session; the native layer does.
type Client struct {
	log        *zap.Logger
	invoker    Invoker
	normalizer Normalizer
	opts       clientOpts
}

func NewClient(log *zap.Logger, invoker Invoker, normalizer Normalizer, opts ...Option) *Client {
	c := &Client{
		log:        log.With(zap.String("platform", normalizer.Platform().String())),
		invoker:    invoker,
		normalizer: normalizer,
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

func (c *Client) Platform() Platform {
	return c.normalizer.Platform()
}

func (c *Client) Configure(ctx context.Context, creds Credentials) error {
	_, err := c.invoker.Invoke(ctx, MethodAuthenticate, map[string]any{
		ArgSite:   creds.Site,
		ArgAPIKey: creds.PublishableAPIKey,
		ArgSDKKey: c.normalizer.SDKKey(creds),
	})
	if err != nil {
		return c.fail(MethodAuthenticate, ErrAuthConfiguration, err)
	}

	c.log.Debug("Configured billing sdk", zap.String("site", creds.Site))
	return nil
}

// RetrieveProducts looks up store products. The result follows the order of
// the native response, which need not match ids.
func (c *Client) RetrieveProducts(ctx context.Context, ids []string) ([]*Product, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no product identifiers", ErrProductLookup)
	}

	res, err := c.invoker.Invoke(ctx, MethodGetProducts, map[string]any{
		ArgProductIDs: ids,
	})
	if err != nil {
		return nil, c.fail(MethodGetProducts, ErrProductLookup, err)
	}

	encoded, err := stringsResult(res)
	if err != nil {
		return nil, c.fail(MethodGetProducts, ErrProductLookup, err)
	}

	products := make([]*Product, 0, len(encoded))
	for i, element := range encoded {
		product, err := DecodeProduct([]byte(element))
		if err != nil {
			return nil, c.fail(MethodGetProducts, ErrProductLookup, &DecodeError{Entity: "product", Index: i, Err: err})
		}
		products = append(products, product)
	}
	return products, nil
}

// PurchaseProduct starts the store purchase flow for product. An empty
// customerID lets the backend derive the customer.
func (c *Client) PurchaseProduct(ctx context.Context, product *Product, customerID string) (*PurchaseResult, error) {
	if product == nil || product.ID == "" {
		return nil, fmt.Errorf("%w: no product", ErrPurchase)
	}

	res, err := c.invoker.Invoke(ctx, MethodPurchaseProduct, map[string]any{
		ArgProduct:    product.ID,
		ArgCustomerID: customerID,
	})
	if err != nil {
		return nil, c.fail(MethodPurchaseProduct, ErrPurchase, err)
	}

	raw, err := stringResult(res)
	if err != nil {
		return nil, c.fail(MethodPurchaseProduct, ErrPurchase, err)
	}

	if raw == "" {
		if c.opts.strictPurchases {
			return nil, c.fail(MethodPurchaseProduct, ErrPurchase, ErrEmptyPurchaseResult)
		}
		c.log.Debug("Native layer returned an empty purchase result", zap.String("product_id", product.ID))
		return sentinelPurchaseResult(raw), nil
	}

	result, err := DecodePurchaseResult([]byte(raw))
	if err != nil {
		return nil, c.fail(MethodPurchaseProduct, ErrPurchase, &DecodeError{Entity: "purchase result", Index: -1, Err: err})
	}
	return result, nil
}

func (c *Client) RetrieveSubscriptions(ctx context.Context, params map[string]string) ([]*Subscription, error) {
	return retrieveList(ctx, c, MethodRetrieveSubscriptions, ErrSubscriptionQuery, params, "subscription", c.normalizer.Subscription)
}

func (c *Client) RetrieveAllItems(ctx context.Context, params map[string]string) ([]*Item, error) {
	return retrieveList(ctx, c, MethodRetrieveAllItems, ErrCatalogQuery, params, "item", c.normalizer.Item)
}

func (c *Client) RetrieveAllPlans(ctx context.Context, params map[string]string) ([]*Plan, error) {
	return retrieveList(ctx, c, MethodRetrieveAllPlans, ErrCatalogQuery, params, "plan", c.normalizer.Plan)
}

func (c *Client) RetrieveProductIdentifiers(ctx context.Context, params map[string]string) ([]string, error) {
	raw, err := c.query(ctx, MethodRetrieveProductIdentifiers, ErrCatalogQuery, params)
	if err != nil {
		return nil, err
	}

	list, err := DecodeProductIdentifierList([]byte(raw))
	if err != nil {
		return nil, c.fail(MethodRetrieveProductIdentifiers, ErrCatalogQuery, asDecodeError("product identifiers", err))
	}
	return nonNil(list.ProductIdentifiers), nil
}

func (c *Client) RetrieveEntitlements(ctx context.Context, params map[string]string) ([]string, error) {
	raw, err := c.query(ctx, MethodGetEntitlements, ErrCatalogQuery, params)
	if err != nil {
		return nil, err
	}

	list, err := DecodeEntitlementList([]byte(raw))
	if err != nil {
		return nil, c.fail(MethodGetEntitlements, ErrCatalogQuery, asDecodeError("entitlements", err))
	}
	return nonNil(list.Entitlements), nil
}

// query issues a query-parameter invocation whose result is a JSON document.
func (c *Client) query(ctx context.Context, method Method, kind error, params map[string]string) (string, error) {
	args := make(map[string]any, len(params))
	for k, v := range params {
		args[k] = v
	}

	res, err := c.invoker.Invoke(ctx, method, args)
	if err != nil {
		return "", c.fail(method, kind, err)
	}

	raw, err := stringResult(res)
	if err != nil {
		return "", c.fail(method, kind, err)
	}
	return raw, nil
}

// retrieveList decodes a JSON array response, unwrapping every element. The
// first malformed element fails the whole call.
func retrieveList[T any](
	ctx context.Context,
	c *Client,
	method Method,
	kind error,
	params map[string]string,
	entity string,
	unwrap func(json.RawMessage) (*T, error),
) ([]*T, error) {
	raw, err := c.query(ctx, method, kind, params)
	if err != nil {
		return nil, err
	}

	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return nil, c.fail(method, kind, &DecodeError{Entity: entity, Index: -1, Err: err})
	}

	records := make([]*T, 0, len(elements))
	for i, element := range elements {
		record, err := unwrap(element)
		if err == nil && record == nil {
			err = errors.New("empty element")
		}
		if err != nil {
			return nil, c.fail(method, kind, &DecodeError{Entity: entity, Index: i, Err: err})
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *Client) fail(method Method, kind, err error) error {
	c.log.Warn("Billing call failed", zap.String("method", string(method)), zap.Error(err))
	return fmt.Errorf("%w: %w", kind, err)
}

// asDecodeError keeps element-level decode errors and attributes anything
// else to the payload as a whole.
func asDecodeError(entity string, err error) error {
	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return err
	}
	return &DecodeError{Entity: entity, Index: -1, Err: err}
}

func stringResult(res any) (string, error) {
	s, ok := res.(string)
	if !ok {
		return "", &DecodeError{Entity: "result", Index: -1, Err: fmt.Errorf("expected string, got %T", res)}
	}
	return s, nil
}

func stringsResult(res any) ([]string, error) {
	if res == nil {
		return nil, nil
	}
	out, err := toStrings(res)
	if err != nil {
		return nil, &DecodeError{Entity: "result", Index: -1, Err: err}
	}
	return out, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
