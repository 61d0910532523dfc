package obs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics groups Prometheus collectors for HTTP observability.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// DefaultHTTPBuckets are request latency buckets in milliseconds.
var DefaultHTTPBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// NewHTTPMetrics registers and returns HTTP metrics collectors.
func NewHTTPMetrics(namespace string, buckets []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if len(buckets) == 0 {
		buckets = DefaultHTTPBuckets
	}
	m := &HTTPMetrics{
		ReqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests handled by the server.",
		}, []string{"method", "route", "status"}),
		ReqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency distribution in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
	}
	mustRegisterCollector(reg, m.ReqTotal, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.ReqTotal = v
		}
	})
	mustRegisterCollector(reg, m.ReqDur, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.HistogramVec); ok {
			m.ReqDur = v
		}
	})
	mustRegisterCollector(reg, m.InFlight, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Gauge); ok {
			m.InFlight = v
		}
	})
	return m
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
