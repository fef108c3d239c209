// Package metrics exports connector events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Jaydccq/mini-ups-sub001/internal/app"
)

// Metrics implements app.EventEmitter.
type Metrics struct {
	State             prometheus.Gauge
	Transitions       *prometheus.CounterVec
	Batches           prometheus.Counter
	Entries           *prometheus.CounterVec
	BridgeFailures    *prometheus.CounterVec
	UnknownStatus     prometheus.Counter
	DispatchSeconds   prometheus.Histogram
	ReconnectAttempts prometheus.Counter
	ReconnectDelay    prometheus.Gauge
	ReconnectGiveUps  prometheus.Counter
	IdleAlerts        prometheus.Counter
}

var _ app.EventEmitter = (*Metrics)(nil)

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		State:             f.NewGauge(prometheus.GaugeOpts{Name: "worldlink_connection_state", Help: "Connection state (0 INIT .. 5 SHUTDOWN)"}),
		Transitions:       f.NewCounterVec(prometheus.CounterOpts{Name: "worldlink_state_transitions_total", Help: "State transitions by target state"}, []string{"to"}),
		Batches:           f.NewCounter(prometheus.CounterOpts{Name: "worldlink_batches_total", Help: "Inbound batches dispatched"}),
		Entries:           f.NewCounterVec(prometheus.CounterOpts{Name: "worldlink_entries_total", Help: "Inbound entries by kind"}, []string{"kind"}),
		BridgeFailures:    f.NewCounterVec(prometheus.CounterOpts{Name: "worldlink_bridge_failures_total", Help: "Failed bridge calls by entry kind"}, []string{"kind"}),
		UnknownStatus:     f.NewCounter(prometheus.CounterOpts{Name: "worldlink_unknown_status_total", Help: "Entries skipped for an unmapped status tag"}),
		DispatchSeconds:   f.NewHistogram(prometheus.HistogramOpts{Name: "worldlink_dispatch_duration_seconds", Help: "Batch dispatch latency", Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14)}),
		ReconnectAttempts: f.NewCounter(prometheus.CounterOpts{Name: "worldlink_reconnect_attempts_total", Help: "Reconnection attempts scheduled"}),
		ReconnectDelay:    f.NewGauge(prometheus.GaugeOpts{Name: "worldlink_reconnect_delay_seconds", Help: "Delay of the last scheduled reconnection"}),
		ReconnectGiveUps:  f.NewCounter(prometheus.CounterOpts{Name: "worldlink_reconnect_exhausted_total", Help: "Times the reconnection policy gave up"}),
		IdleAlerts:        f.NewCounter(prometheus.CounterOpts{Name: "worldlink_read_idle_total", Help: "Idle-read watchdog firings"}),
	}
}

func (m *Metrics) OnStateChange(previous, current app.State, reason string) {
	m.State.Set(float64(current))
	m.Transitions.WithLabelValues(current.String()).Inc()
}

func (m *Metrics) OnBatch(stats app.DispatchStats) {
	m.Batches.Inc()
	m.Entries.WithLabelValues("completion").Add(float64(stats.Completions))
	m.Entries.WithLabelValues("delivery").Add(float64(stats.Deliveries))
	m.Entries.WithLabelValues("status").Add(float64(stats.Statuses))
	m.Entries.WithLabelValues("error").Add(float64(stats.Errors))
	m.Entries.WithLabelValues("ack").Add(float64(stats.Acks))
	m.UnknownStatus.Add(float64(stats.UnknownTags))
	m.DispatchSeconds.Observe(stats.Duration.Seconds())
}

func (m *Metrics) OnReconnectScheduled(attempt int, delay time.Duration) {
	m.ReconnectAttempts.Inc()
	m.ReconnectDelay.Set(delay.Seconds())
}

func (m *Metrics) OnReconnectExhausted(attempts int) {
	m.ReconnectGiveUps.Inc()
}

func (m *Metrics) OnIdle(idle time.Duration) {
	m.IdleAlerts.Inc()
}

func (m *Metrics) OnBridgeError(kind string, err error) {
	m.BridgeFailures.WithLabelValues(kind).Inc()
}
