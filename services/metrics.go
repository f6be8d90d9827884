package services

import "github.com/prometheus/client_golang/prometheus"

var (
	connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mikrotik_connect_attempts_total",
			Help: "RouterOS connect attempts by result.",
		},
		[]string{"result"},
	)
	liveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mikrotik_sessions_connected",
			Help: "Number of router sessions currently connected.",
		},
	)
	discardedSessions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mikrotik_sessions_discarded_total",
			Help: "Sessions dropped after the router stopped answering.",
		},
	)
	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mikrotik_call_duration_seconds",
			Help:    "RouterOS API call latency by result.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(connectAttempts, liveSessions, discardedSessions, callDuration)
}
