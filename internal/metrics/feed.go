package metrics

import "github.com/prometheus/client_golang/prometheus"

// FeedMetrics считает события источников уведомлений (postgres LISTEN, kafka).
type FeedMetrics struct {
	events     *prometheus.CounterVec
	reconnects *prometheus.CounterVec
}

func NewFeedMetrics() *FeedMetrics {
	return NewFeedMetricsWith(prometheus.DefaultRegisterer)
}

func NewFeedMetricsWith(registerer prometheus.Registerer) *FeedMetrics {
	registerer = orDefault(registerer)

	return &FeedMetrics{
		events: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cafe_feed_events_total",
			Help: "Total number of change notifications handled by source and result",
		}, []string{"source", "result"}),
		reconnects: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cafe_feed_reconnects_total",
			Help: "Total number of change feed reconnect attempts by source",
		}, []string{"source"}),
	}
}

func (m *FeedMetrics) RecordEvent(source, result string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(source, result).Inc()
}

func (m *FeedMetrics) RecordReconnect(source string) {
	if m == nil {
		return
	}
	m.reconnects.WithLabelValues(source).Inc()
}
