package metrics

import "github.com/prometheus/client_golang/prometheus"

// Причины удаления подписчика и потери кадров.
const (
	ReasonWriteFailed = "write_failed"
	ReasonOverflow    = "overflow"
	ReasonClosed      = "closed"
	ReasonShutdown    = "shutdown"
)

// LiveMetrics содержит метрики канала живых обновлений.
type LiveMetrics struct {
	sinks         prometheus.Gauge
	framesSent    *prometheus.CounterVec
	framesDropped *prometheus.CounterVec
	sinksRemoved  *prometheus.CounterVec
}

func NewLiveMetrics() *LiveMetrics {
	return NewLiveMetricsWith(prometheus.DefaultRegisterer)
}

func NewLiveMetricsWith(registerer prometheus.Registerer) *LiveMetrics {
	registerer = orDefault(registerer)

	return &LiveMetrics{
		sinks: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "cafe_live_sinks",
			Help: "Number of currently connected live update sinks",
		}),
		framesSent: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cafe_live_frames_sent_total",
			Help: "Total number of frames written to sinks by frame type",
		}, []string{"type"}),
		framesDropped: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cafe_live_frames_dropped_total",
			Help: "Total number of frames not delivered by reason",
		}, []string{"reason"}),
		sinksRemoved: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "cafe_live_sinks_removed_total",
			Help: "Total number of sinks removed by reason",
		}, []string{"reason"}),
	}
}

func (m *LiveMetrics) SinkAdded() {
	if m == nil {
		return
	}
	m.sinks.Inc()
}

// SinkRemoved уменьшает gauge и считает причину удаления.
func (m *LiveMetrics) SinkRemoved(reason string) {
	if m == nil {
		return
	}
	m.sinks.Dec()
	m.sinksRemoved.WithLabelValues(reason).Inc()
}

func (m *LiveMetrics) FrameSent(frameType string) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(frameType).Inc()
}

func (m *LiveMetrics) FrameDropped(reason string) {
	if m == nil {
		return
	}
	m.framesDropped.WithLabelValues(reason).Inc()
}
