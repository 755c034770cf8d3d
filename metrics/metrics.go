// Package metrics instruments the coupling package with Prometheus
// collectors, following the registration pattern of Cizor's
// NBICollector: register-or-reuse against a caller-supplied Registerer
// so repeated construction in tests never panics on a duplicate
// registration.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the counters and histograms the coupling driver
// updates on every gather or scatter.
type Collector struct {
	gatherer prometheus.Gatherer

	ElementsTransferred *prometheus.CounterVec // labels: plan, direction
	BytesTransferred    *prometheus.CounterVec // labels: plan, direction
	DroppedIDs          *prometheus.CounterVec // labels: plan
	PlanBuildSeconds     *prometheus.HistogramVec
	ExecuteSeconds       *prometheus.HistogramVec
}

// New registers the coupler's metrics against reg, defaulting to the
// global Prometheus registry when reg is nil.
func New(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	elements, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fcoupler_elements_transferred_total",
		Help: "Total number of DOF elements moved by a transfer plan, labeled by plan name and direction.",
	}, []string{"plan", "direction"}), "fcoupler_elements_transferred_total")
	if err != nil {
		return nil, err
	}

	bytes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fcoupler_bytes_transferred_total",
		Help: "Total number of payload bytes moved by a transfer plan, labeled by plan name and direction.",
	}, []string{"plan", "direction"}), "fcoupler_bytes_transferred_total")
	if err != nil {
		return nil, err
	}

	dropped, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fcoupler_dropped_ids_total",
		Help: "Total number of global ids received during a scatter that had no matching local DOF.",
	}, []string{"plan"}), "fcoupler_dropped_ids_total")
	if err != nil {
		return nil, err
	}

	buildSeconds, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fcoupler_plan_build_seconds",
		Help:    "Wall time spent building a transfer plan, labeled by plan name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"plan"}), "fcoupler_plan_build_seconds")
	if err != nil {
		return nil, err
	}

	execSeconds, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fcoupler_execute_seconds",
		Help:    "Wall time spent executing a transfer plan, labeled by plan name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"plan"}), "fcoupler_execute_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:            gatherer,
		ElementsTransferred: elements,
		BytesTransferred:    bytes,
		DroppedIDs:          dropped,
		PlanBuildSeconds:    buildSeconds,
		ExecuteSeconds:      execSeconds,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
