package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций сервиса заказов для label "result".
const (
	ResultOK          = "ok"
	ResultInvalid     = "invalid"
	ResultNotFound    = "not_found"
	ResultUnavailable = "unavailable"
	ResultError       = "error"
)

// OrderMetrics содержит метрики сервиса заказов.
type OrderMetrics struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	submitted       prometheus.Counter
	completed       prometheus.Counter
	publishFailures prometheus.Counter
}

// NewOrderMetrics регистрирует метрики в DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWith(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWith регистрирует метрики в переданном registerer.
func NewOrderMetricsWith(registerer prometheus.Registerer) *OrderMetrics {
	registerer = orDefault(registerer)

	return &OrderMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cafe_order_operations_total",
			Help: "Total number of order service operations by result",
		}, []string{"op", "result"}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "cafe_order_operation_duration_seconds",
			Help:    "Duration of order service operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}, []string{"op"}),
		submitted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cafe_orders_submitted_total",
			Help: "Total number of orders accepted",
		}),
		completed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cafe_orders_completed_total",
			Help: "Total number of completion requests that succeeded",
		}),
		publishFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "cafe_order_publish_failures_total",
			Help: "Total number of order events that could not be published",
		}),
	}
}

// RecordOperation фиксирует результат и длительность операции.
func (m *OrderMetrics) RecordOperation(op, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *OrderMetrics) RecordSubmitted() {
	if m == nil {
		return
	}
	m.submitted.Inc()
}

func (m *OrderMetrics) RecordCompleted() {
	if m == nil {
		return
	}
	m.completed.Inc()
}

func (m *OrderMetrics) RecordPublishFailure() {
	if m == nil {
		return
	}
	m.publishFailures.Inc()
}
