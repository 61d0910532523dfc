package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	QueueEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_enqueued_total",
			Help: "Tasks handed to the broker grouped by outcome",
		},
		[]string{"kind", "status"},
	)
	QueueProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_processed_total",
			Help: "Total tasks processed grouped by status",
		},
		[]string{"kind", "status"},
	)
)

func init() {
	prometheus.MustRegister(QueueEnqueuedTotal, QueueProcessedTotal)
}

func observeEnqueue(kind, status string) {
	QueueEnqueuedTotal.WithLabelValues(kind, status).Inc()
}

func observeProcessed(kind, status string) {
	QueueProcessedTotal.WithLabelValues(kind, status).Inc()
}
