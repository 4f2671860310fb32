package memory

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"github.com/code-payments/billing-bridge/billing"
	"github.com/code-payments/billing-bridge/query"
)

// Native error codes produced by the sandbox.
const (
	CodeNotConfigured      = "not_configured"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidRequest     = "invalid_request"
	CodeProductNotFound    = "product_not_found"
)

// Encoder renders domain records in one platform's payload shape.
type Encoder interface {
	EncodeSubscription(s *billing.Subscription) (json.RawMessage, error)
	EncodeItem(i *billing.Item) (json.RawMessage, error)
	EncodePlan(p *billing.Plan) (json.RawMessage, error)
}

// Catalog is the backend state served by the sandbox.
type Catalog struct {
	Products      []*billing.Product
	Subscriptions []*billing.Subscription
	Items         []*billing.Item
	Plans         []*billing.Plan
	Entitlements  []string
}

// Call records one invocation received by the sandbox.
type Call struct {
	Method billing.Method
	Args   map[string]any
}

type Option func(*Invoker)

// WithoutAuthentication lets every method succeed without a prior
// authenticate call.
func WithoutAuthentication() Option {
	return func(i *Invoker) {
		i.requireAuth = false
	}
}

// WithClock overrides the time source used for purchases.
func WithClock(now func() time.Time) Option {
	return func(i *Invoker) {
		i.now = now
	}
}

// Invoker is an in-process stand-in for a native billing SDK. It answers
// every wire method in the payload shape of its Encoder, and supports
// failure injection and raw response overrides for tests.
type Invoker struct {
	mu sync.RWMutex

	encoder     Encoder
	catalog     Catalog
	requireAuth bool
	now         func() time.Time

	site       string
	configured bool

	failures  map[billing.Method]*billing.InvocationError
	overrides map[billing.Method]any
	calls     []Call
}

func NewInvoker(encoder Encoder, catalog Catalog, opts ...Option) *Invoker {
	// Records are copied so later changes by the caller never reach the sandbox.
	catalog.Subscriptions = cloneAll(catalog.Subscriptions)
	catalog.Items = cloneAll(catalog.Items)
	catalog.Plans = cloneAll(catalog.Plans)

	i := &Invoker{
		encoder:     encoder,
		catalog:     catalog,
		requireAuth: true,
		now:         time.Now,
		failures:    make(map[billing.Method]*billing.InvocationError),
		overrides:   make(map[billing.Method]any),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func cloneAll[T interface{ Clone() T }](records []T) []T {
	cloned := make([]T, 0, len(records))
	for _, record := range records {
		cloned = append(cloned, record.Clone())
	}
	return cloned
}

// FailWith makes every following call to method fail with a native error.
func (i *Invoker) FailWith(method billing.Method, code, message string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.failures[method] = &billing.InvocationError{
		Method:  method,
		Code:    code,
		Message: message,
	}
}

// ReturnRaw makes every following call to method return result verbatim.
func (i *Invoker) ReturnRaw(method billing.Method, result any) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.overrides[method] = result
}

// Calls returns the number of invocations received for method.
func (i *Invoker) Calls(method billing.Method) int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	var n int
	for _, c := range i.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// History returns every invocation received, oldest first.
func (i *Invoker) History() []Call {
	i.mu.RLock()
	defer i.mu.RUnlock()

	history := make([]Call, len(i.calls))
	copy(history, i.calls)
	return history
}

// Site returns the site of the active session, if any.
func (i *Invoker) Site() string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return i.site
}

// Reset drops the session, injected behaviour and call history. The catalog
// is kept.
func (i *Invoker) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.site = ""
	i.configured = false
	i.failures = make(map[billing.Method]*billing.InvocationError)
	i.overrides = make(map[billing.Method]any)
	i.calls = nil
}

func (i *Invoker) Invoke(ctx context.Context, method billing.Method, args map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.calls = append(i.calls, Call{Method: method, Args: copyArgs(args)})

	if failure, ok := i.failures[method]; ok {
		return nil, failure
	}
	if result, ok := i.overrides[method]; ok {
		return result, nil
	}

	if method == billing.MethodAuthenticate {
		return i.authenticate(args)
	}
	if i.requireAuth && !i.configured {
		return nil, nativeError(method, CodeNotConfigured, "sdk is not configured")
	}

	switch method {
	case billing.MethodGetProducts:
		return i.getProducts(args)
	case billing.MethodPurchaseProduct:
		return i.purchaseProduct(args)
	case billing.MethodRetrieveSubscriptions:
		return i.retrieveSubscriptions(args)
	case billing.MethodRetrieveProductIdentifiers:
		return i.retrieveProductIdentifiers(args)
	case billing.MethodGetEntitlements:
		return marshalString(&billing.EntitlementList{Entitlements: append([]string{}, i.catalog.Entitlements...)})
	case billing.MethodRetrieveAllItems:
		return i.retrieveAllItems(args)
	case billing.MethodRetrieveAllPlans:
		return i.retrieveAllPlans(args)
	default:
		return nil, nativeError(method, CodeInvalidRequest, "unknown method")
	}
}

func (i *Invoker) authenticate(args map[string]any) (any, error) {
	site, siteErr := billing.StringArg(args, billing.ArgSite)
	apiKey, keyErr := billing.StringArg(args, billing.ArgAPIKey)
	sdkKey, sdkErr := billing.StringArg(args, billing.ArgSDKKey)
	if siteErr != nil || keyErr != nil || sdkErr != nil {
		return nil, nativeError(billing.MethodAuthenticate, CodeInvalidRequest, "malformed credentials")
	}
	if site == "" || apiKey == "" || sdkKey == "" {
		return nil, nativeError(billing.MethodAuthenticate, CodeInvalidCredentials, "site, api key and sdk key are required")
	}

	i.site = site
	i.configured = true
	return nil, nil
}

// getProducts answers in catalog order, omitting unknown identifiers the way
// the store SDKs do.
func (i *Invoker) getProducts(args map[string]any) (any, error) {
	ids, err := billing.StringsArg(args, billing.ArgProductIDs)
	if err != nil {
		return nil, nativeError(billing.MethodGetProducts, CodeInvalidRequest, err.Error())
	}

	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	products := []string{}
	for _, p := range i.catalog.Products {
		if _, ok := wanted[p.ID]; !ok {
			continue
		}
		encoded, err := marshalString(p)
		if err != nil {
			return nil, err
		}
		products = append(products, encoded)
	}
	return products, nil
}

func (i *Invoker) purchaseProduct(args map[string]any) (any, error) {
	productID, err := billing.StringArg(args, billing.ArgProduct)
	if err != nil || productID == "" {
		return nil, nativeError(billing.MethodPurchaseProduct, CodeInvalidRequest, "product is required")
	}
	customerID, err := billing.StringArg(args, billing.ArgCustomerID)
	if err != nil {
		return nil, nativeError(billing.MethodPurchaseProduct, CodeInvalidRequest, err.Error())
	}

	var product *billing.Product
	for _, p := range i.catalog.Products {
		if p.ID == productID {
			product = p
			break
		}
	}
	if product == nil {
		return nil, nativeError(billing.MethodPurchaseProduct, CodeProductNotFound, productID)
	}

	if customerID == "" {
		customerID, err = generateCustomerID()
		if err != nil {
			return nil, err
		}
	}

	now := i.now().UTC().Truncate(time.Second)
	subscription := &billing.Subscription{
		ID:               uuid.NewString(),
		CustomerID:       customerID,
		PlanID:           product.ID,
		Status:           "active",
		PlanAmount:       product.Price.Shift(2).IntPart(),
		ActivatedAt:      now,
		CurrentTermStart: now,
		CurrentTermEnd:   termEnd(now, product.SubscriptionPeriod),
	}
	i.catalog.Subscriptions = append(i.catalog.Subscriptions, subscription)

	return marshalString(&billing.PurchaseResult{
		TransactionID: subscription.ID,
		ProductID:     product.ID,
		Status:        subscription.Status,
	})
}

// retrieveSubscriptions filters on customer_id, subscription_id and status;
// other filters are ignored.
func (i *Invoker) retrieveSubscriptions(args map[string]any) (any, error) {
	opts, err := query.FromArgs(args)
	if err != nil {
		return nil, nativeError(billing.MethodRetrieveSubscriptions, CodeInvalidRequest, err.Error())
	}

	fields := map[string]func(*billing.Subscription) string{
		"customer_id":     func(s *billing.Subscription) string { return s.CustomerID },
		"subscription_id": func(s *billing.Subscription) string { return s.ID },
		"status":          func(s *billing.Subscription) string { return s.Status },
	}

	var matched []*billing.Subscription
	for _, s := range i.catalog.Subscriptions {
		ok := true
		for key, field := range fields {
			if want := opts.Filters[key]; want != "" && field(s) != want {
				ok = false
				break
			}
		}
		if ok {
			matched = append(matched, s)
		}
	}

	page, err := paginate(matched, opts)
	if err != nil {
		return nil, nativeError(billing.MethodRetrieveSubscriptions, CodeInvalidRequest, err.Error())
	}
	return encodeList(page, i.encoder.EncodeSubscription)
}

func (i *Invoker) retrieveProductIdentifiers(args map[string]any) (any, error) {
	page, err := listPage(billing.MethodRetrieveProductIdentifiers, args, i.catalog.Products)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(page))
	for _, p := range page {
		ids = append(ids, p.ID)
	}
	return marshalString(&billing.ProductIdentifierList{ProductIdentifiers: ids})
}

func (i *Invoker) retrieveAllItems(args map[string]any) (any, error) {
	page, err := listPage(billing.MethodRetrieveAllItems, args, i.catalog.Items)
	if err != nil {
		return nil, err
	}
	return encodeList(page, i.encoder.EncodeItem)
}

func (i *Invoker) retrieveAllPlans(args map[string]any) (any, error) {
	page, err := listPage(billing.MethodRetrieveAllPlans, args, i.catalog.Plans)
	if err != nil {
		return nil, err
	}
	return encodeList(page, i.encoder.EncodePlan)
}

func listPage[T any](method billing.Method, args map[string]any, records []*T) ([]*T, error) {
	opts, err := query.FromArgs(args)
	if err != nil {
		return nil, nativeError(method, CodeInvalidRequest, err.Error())
	}

	page, err := paginate(records, opts)
	if err != nil {
		return nil, nativeError(method, CodeInvalidRequest, err.Error())
	}
	return page, nil
}

// paginate orders, skips and truncates records. Offsets are decimal indexes
// into the ordered listing.
func paginate[T any](records []*T, opts query.Options) ([]*T, error) {
	ordered := records
	if opts.Order == query.OrderDesc {
		ordered = make([]*T, len(records))
		for idx, r := range records {
			ordered[len(records)-1-idx] = r
		}
	}

	if opts.Offset != "" {
		start, err := strconv.Atoi(opts.Offset)
		if err != nil || start < 0 {
			return nil, fmt.Errorf("invalid offset: %q", opts.Offset)
		}
		if start > len(ordered) {
			start = len(ordered)
		}
		ordered = ordered[start:]
	}

	if opts.Limit > 0 && opts.Limit < len(ordered) {
		ordered = ordered[:opts.Limit]
	}
	return ordered, nil
}

func encodeList[T any](records []*T, encode func(*T) (json.RawMessage, error)) (any, error) {
	encoded := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		e, err := encode(r)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, e)
	}
	return marshalString(encoded)
}

func marshalString(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func termEnd(start time.Time, period *billing.Period) time.Time {
	if period == nil || period.NumberOfUnits <= 0 {
		return time.Time{}
	}

	n := period.NumberOfUnits
	switch period.Unit {
	case "day":
		return start.AddDate(0, 0, n)
	case "week":
		return start.AddDate(0, 0, 7*n)
	case "year":
		return start.AddDate(n, 0, 0)
	default:
		return start.AddDate(0, n, 0)
	}
}

func generateCustomerID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return "cust_" + base58.Encode(b[:]), nil
}

func nativeError(method billing.Method, code, message string) *billing.InvocationError {
	return &billing.InvocationError{
		Method:  method,
		Code:    code,
		Message: message,
	}
}

func copyArgs(args map[string]any) map[string]any {
	copied := make(map[string]any, len(args))
	for k, v := range args {
		copied[k] = v
	}
	return copied
}
