// Package metrics содержит prometheus метрики клиента и relay.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Значения label result
const (
	ResultOK    = "ok"
	ResultError = "error"
)

var (
	// SyncRequests counts push/pull exchanges by operation and result
	SyncRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gophnotes_sync_requests_total",
		Help: "Total push/pull exchanges by operation and result",
	}, []string{"operation", "result"})

	// SyncDuration tracks push/pull latency
	SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gophnotes_sync_duration_seconds",
		Help:    "Push/pull duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	}, []string{"operation"})

	// PushConflicts counts notes reported as conflicts by the server
	PushConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gophnotes_push_conflicts_total",
		Help: "Total notes rejected by the server as conflicts",
	})

	// PendingUpdates is the number of updates waiting for acknowledgement
	PendingUpdates = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gophnotes_pending_updates",
		Help: "Local updates waiting for server acknowledgement",
	})

	// Reconnects counts reconnection attempts of the live channel
	Reconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gophnotes_reconnect_attempts_total",
		Help: "Total reconnection attempts of the live channel",
	})

	// RemoteUpdates counts updates applied from the server by transport
	RemoteUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gophnotes_remote_updates_total",
		Help: "Total remote updates applied by transport",
	}, []string{"transport"})

	// LogAppends counts update log appends by result
	LogAppends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gophnotes_log_appends_total",
		Help: "Total update log appends by result",
	}, []string{"result"})

	// Compactions counts snapshot compactions by result
	Compactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gophnotes_compactions_total",
		Help: "Total snapshot compactions by result",
	}, []string{"result"})

	// RelayConnections is the number of open live connections on the relay
	RelayConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gophnotes_relay_live_connections",
		Help: "Open live channel connections on the relay",
	})
)

// Result возвращает значение label result для ошибки
func Result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}

// Handler отдаёт метрики в формате prometheus
func Handler() http.Handler {
	return promhttp.Handler()
}
