package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Invocation outcomes recorded in the result label.
const (
	ResultOK          = "ok"
	ResultNativeError = "native_error"
	ResultCanceled    = "canceled"
	ResultError       = "error"
)

type Registry struct {
	reg *prometheus.Registry

	Invocations *prometheus.CounterVec
	LatencySec  *prometheus.HistogramVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	invocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_invocations_total",
		Help: "Native billing invocations by method and result.",
	}, []string{"method", "result"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billing_invocation_latency_seconds",
		Help:    "Native billing invocation latency by method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	r.MustRegister(invocations, latency)
	return &Registry{
		reg:         r,
		Invocations: invocations,
		LatencySec:  latency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
