package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/watchfire-io/hookwatch/internal/daemon/monitor"
	"github.com/watchfire-io/hookwatch/internal/models"
)

var allStatuses = []models.SessionStatus{
	models.SessionStatusIdle,
	models.SessionStatusRunning,
	models.SessionStatusPermission,
	models.SessionStatusFinished,
	models.SessionStatusEnded,
}

// Metrics holds the daemon's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry
	sessions *prometheus.GaugeVec
	pending  prometheus.Gauge
	unseen   prometheus.Gauge
	reloads  prometheus.Counter
}

// NewMetrics creates collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hookwatch",
			Name:      "sessions",
			Help:      "Tracked sessions by status.",
		}, []string{"status"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hookwatch",
			Name:      "pending_permission_requests",
			Help:      "Permission requests waiting for a decision.",
		}),
		unseen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hookwatch",
			Name:      "unseen_sessions",
			Help:      "Finished sessions not yet acknowledged.",
		}),
		reloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hookwatch",
			Name:      "reloads_total",
			Help:      "State reloads triggered by change signals.",
		}),
	}
	m.registry.MustRegister(m.sessions, m.pending, m.unseen, m.reloads)
	return m
}

// Observe records a snapshot.
func (m *Metrics) Observe(snap monitor.Snapshot) {
	counts := snap.CountByStatus()
	for _, status := range allStatuses {
		m.sessions.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
	m.pending.Set(float64(len(snap.Pending)))
	m.unseen.Set(float64(len(snap.Unseen)))
	m.reloads.Inc()
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
