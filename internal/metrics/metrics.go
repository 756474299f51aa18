package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ResolutionsTotal   *prometheus.CounterVec
	FetchesTotal       *prometheus.CounterVec
	FallbackSavesTotal *prometheus.CounterVec
	MemoryCacheEntries prometheus.Gauge

	HTTPRequestsTotal *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses a private registry,
// which keeps repeated construction in tests from panicking.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ResolutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cnb_resolutions_total",
				Help: "Total number of rate resolutions by outcome",
			},
			[]string{"outcome"},
		),

		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cnb_fetches_total",
				Help: "Total number of CNB table fetches by result",
			},
			[]string{"result"},
		),

		FallbackSavesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cnb_fallback_saves_total",
				Help: "Total number of fallback store writes by result",
			},
			[]string{"result"},
		),

		MemoryCacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cnb_memory_cache_entries",
				Help: "Number of entries in the in-memory rate cache",
			},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status_code"},
		),
	}
}

func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFetch(result string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveFallbackSave(result string) {
	if m == nil {
		return
	}
	m.FallbackSavesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.MemoryCacheEntries.Set(float64(n))
}

// ObserveHTTPRequest counts a request by route and status class.
func (m *Metrics) ObserveHTTPRequest(path, method string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(path, method, fmt.Sprintf("%dxx", status/100)).Inc()
}
