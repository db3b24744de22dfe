package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ActiveSessions 注册表中的会话数
	ActiveSessions prometheus.Gauge

	SessionOpens        *prometheus.CounterVec
	SessionFailures     *prometheus.CounterVec
	SessionReplacements *prometheus.CounterVec
	SessionEvictions    prometheus.Counter

	CommandDuration *prometheus.HistogramVec
	CommandErrors   *prometheus.CounterVec
)

func init() {
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netconfig_sessions_active",
			Help: "Number of device sessions currently held in the registry",
		},
	)

	SessionOpens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netconfig_session_opens_total",
			Help: "A counter metric to measure the total count of SSH sessions opened",
		},
		[]string{"variant", "kind"}, // kind is stored/oneoff
	)

	SessionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netconfig_session_failures_total",
			Help: "A counter metric to measure session establishment failures",
		},
		[]string{"variant", "reason"}, // reason is credentials/unreachable/variant
	)

	SessionReplacements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netconfig_session_replacements_total",
			Help: "A counter metric to measure sessions replaced after a failed liveness probe",
		},
		[]string{"variant"},
	)

	SessionEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netconfig_session_evictions_total",
			Help: "A counter metric to measure idle sessions closed by the janitor",
		},
	)

	CommandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netconfig_command_duration_seconds",
			Help:    "A histogram metric to measure the time spent per device command",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"variant", "kind"}, // kind is exec/config
	)

	CommandErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netconfig_command_errors_total",
			Help: "A counter metric to measure device command failures",
		},
		[]string{"variant", "reason"}, // reason is invalid_input/transport
	)
}

// Handler /metrics 处理器
func Handler() http.Handler {
	return promhttp.Handler()
}
