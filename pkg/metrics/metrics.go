package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsehub_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// GatewayRequests counts calls to the remote OAuth gateway by provider and result.
	GatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsehub_gateway_requests_total",
			Help: "Total number of remote OAuth gateway requests",
		},
		[]string{"provider", "operation", "result"},
	)

	// InvitationEvents counts invitation lifecycle transitions (created|accepted|declined).
	InvitationEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsehub_invitation_events_total",
			Help: "Total number of project invitation events",
		},
		[]string{"event"},
	)

	// ActiveSessions tracks active sessions (not expired/revoked).
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulsehub_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulsehub_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
