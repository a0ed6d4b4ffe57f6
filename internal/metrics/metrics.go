// Package metrics exposes Prometheus instruments for the wishlist service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	itemMutations     *prometheus.CounterVec
	inferenceRequests *prometheus.CounterVec
	inferenceDuration prometheus.Histogram
	openDrafts        prometheus.Gauge
	mediaHandles      prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		itemMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wishlist",
			Name:      "item_mutations_total",
			Help:      "Wish item mutations by operation and result.",
		}, []string{"op", "result"}),
		inferenceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wishlist",
			Name:      "inference_requests_total",
			Help:      "Product inference calls by outcome.",
		}, []string{"outcome"}),
		inferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wishlist",
			Name:      "inference_duration_seconds",
			Help:      "Latency of product inference calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		openDrafts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wishlist",
			Name:      "open_drafts",
			Help:      "Drafts currently held in memory.",
		}),
		mediaHandles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wishlist",
			Name:      "media_handles",
			Help:      "Uploaded images currently held in memory.",
		}),
	}

	m.Registry.MustRegister(
		m.itemMutations,
		m.inferenceRequests,
		m.inferenceDuration,
		m.openDrafts,
		m.mediaHandles,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ItemMutation counts one add/update/delete attempt.
func (m *Metrics) ItemMutation(op, result string) {
	if m == nil {
		return
	}
	m.itemMutations.WithLabelValues(op, result).Inc()
}

// Inference records one inference call.
func (m *Metrics) Inference(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inferenceRequests.WithLabelValues(outcome).Inc()
	m.inferenceDuration.Observe(elapsed.Seconds())
}

// OpenDrafts sets the number of live drafts.
func (m *Metrics) OpenDrafts(n int) {
	if m == nil {
		return
	}
	m.openDrafts.Set(float64(n))
}

// MediaHandles sets the number of live media handles.
func (m *Metrics) MediaHandles(n int) {
	if m == nil {
		return
	}
	m.mediaHandles.Set(float64(n))
}
