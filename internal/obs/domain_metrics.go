package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutTotal counts checkout attempts by outcome.
	CheckoutTotal *prometheus.CounterVec
	// LedgerRowsWritten counts ledger rows made visible by successful commits.
	LedgerRowsWritten prometheus.Counter
	// LedgerCommitDuration records the latency of ledger commits in seconds.
	LedgerCommitDuration *prometheus.HistogramVec
	// AnalyticsReportsTotal counts analytics reports by report and status.
	AnalyticsReportsTotal *prometheus.CounterVec
	// AnalyticsCacheTotal counts report cache lookups by result.
	AnalyticsCacheTotal *prometheus.CounterVec
	// CartOperationsTotal counts cart mutations by operation.
	CartOperationsTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout outcomes.",
		}, []string{"result"})
		LedgerRowsWritten = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_rows_written_total",
			Help:      "Number of ledger rows committed.",
		})
		LedgerCommitDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_commit_duration_seconds",
			Help:      "Latency of ledger commits in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"result"})
		AnalyticsReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_reports_total",
			Help:      "Count of analytics reports served by status.",
		}, []string{"report", "status"})
		AnalyticsCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analytics_cache_total",
			Help:      "Analytics report cache lookups by result.",
		}, []string{"result"})
		CartOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_operations_total",
			Help:      "Count of cart mutations by operation.",
		}, []string{"op"})

		mustRegisterCollector(reg, CheckoutTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutTotal = v
			}
		})
		mustRegisterCollector(reg, LedgerRowsWritten, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				LedgerRowsWritten = v
			}
		})
		mustRegisterCollector(reg, LedgerCommitDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				LedgerCommitDuration = v
			}
		})
		mustRegisterCollector(reg, AnalyticsReportsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AnalyticsReportsTotal = v
			}
		})
		mustRegisterCollector(reg, AnalyticsCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AnalyticsCacheTotal = v
			}
		})
		mustRegisterCollector(reg, CartOperationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartOperationsTotal = v
			}
		})
	})
}

// ObserveCheckout records a checkout outcome. Safe before registration.
func ObserveCheckout(result string) {
	if CheckoutTotal != nil {
		CheckoutTotal.WithLabelValues(result).Inc()
	}
}

// ObserveLedgerCommit records commit latency and, on success, the rows written.
func ObserveLedgerCommit(result string, rows int, elapsed time.Duration) {
	if LedgerCommitDuration != nil {
		LedgerCommitDuration.WithLabelValues(result).Observe(elapsed.Seconds())
	}
	if result == "ok" && LedgerRowsWritten != nil {
		LedgerRowsWritten.Add(float64(rows))
	}
}

// ObserveReport records an analytics report outcome.
func ObserveReport(report, status string) {
	if AnalyticsReportsTotal != nil {
		AnalyticsReportsTotal.WithLabelValues(report, status).Inc()
	}
}

// ObserveReportCache records a report cache hit or miss.
func ObserveReportCache(result string) {
	if AnalyticsCacheTotal != nil {
		AnalyticsCacheTotal.WithLabelValues(result).Inc()
	}
}

// ObserveCartOp records a cart mutation.
func ObserveCartOp(op string) {
	if CartOperationsTotal != nil {
		CartOperationsTotal.WithLabelValues(op).Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
