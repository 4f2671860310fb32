package query

import (
	"fmt"
	"strconv"
)

// Reserved query parameter names. Every other parameter is a filter.
const (
	ParamLimit  = "limit"
	ParamOffset = "offset"
	ParamOrder  = "order"
)

type Order string

const (
	OrderUnspecified Order = ""
	OrderAsc         Order = "asc"
	OrderDesc        Order = "desc"
)

type Option func(*Options)

func WithLimit(limit int) Option {
	return func(o *Options) {
		if limit > 0 {
			o.Limit = limit
		}
	}
}

// WithOffset starts the listing at the given decimal index into the ordered
// records, e.g. "20" to skip the first twenty.
func WithOffset(offset string) Option {
	return func(o *Options) {
		o.Offset = offset
	}
}

func WithOrder(order Order) Option {
	return func(o *Options) {
		o.Order = order
	}
}

func WithAscending() Option {
	return func(o *Options) {
		o.Order = OrderAsc
	}
}

func WithDescending() Option {
	return func(o *Options) {
		o.Order = OrderDesc
	}
}

func WithFilter(key, value string) Option {
	return func(o *Options) {
		if o.Filters == nil {
			o.Filters = make(map[string]string)
		}
		o.Filters[key] = value
	}
}

// Options describe a native catalog or subscription listing. Zero values are
// left out of the request so the native layer applies its own defaults.
type Options struct {
	Limit   int
	Offset  string
	Order   Order
	Filters map[string]string
}

func ApplyOptions(options ...Option) Options {
	var applied Options
	for _, option := range options {
		option(&applied)
	}
	return applied
}

// Params renders the options as the free-form parameter map accepted by the
// billing client's query operations.
func (o Options) Params() map[string]string {
	params := make(map[string]string, len(o.Filters)+3)
	for k, v := range o.Filters {
		params[k] = v
	}
	if o.Limit > 0 {
		params[ParamLimit] = strconv.Itoa(o.Limit)
	}
	if o.Offset != "" {
		params[ParamOffset] = o.Offset
	}
	if o.Order != OrderUnspecified {
		params[ParamOrder] = string(o.Order)
	}
	return params
}

// FromArgs parses invocation arguments back into options. Reserved
// parameters must be well formed strings; other string arguments become
// filters and non-string arguments are ignored.
func FromArgs(args map[string]any) (Options, error) {
	var options []Option
	for key, value := range args {
		s, ok := value.(string)
		switch key {
		case ParamLimit, ParamOffset, ParamOrder:
			if !ok {
				return Options{}, fmt.Errorf("%s: expected string, got %T", key, value)
			}
		default:
			if ok {
				options = append(options, WithFilter(key, s))
			}
			continue
		}

		switch key {
		case ParamLimit:
			limit, err := strconv.Atoi(s)
			if err != nil || limit <= 0 {
				return Options{}, fmt.Errorf("invalid limit: %q", s)
			}
			options = append(options, WithLimit(limit))
		case ParamOffset:
			if start, err := strconv.Atoi(s); err != nil || start < 0 {
				return Options{}, fmt.Errorf("invalid offset: %q", s)
			}
			options = append(options, WithOffset(s))
		case ParamOrder:
			order := Order(s)
			if order != OrderAsc && order != OrderDesc {
				return Options{}, fmt.Errorf("invalid order: %q", s)
			}
			options = append(options, WithOrder(order))
		}
	}
	return ApplyOptions(options...), nil
}
