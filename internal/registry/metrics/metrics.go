package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the registry.
type Metrics struct {
	CredentialsIssued  prometheus.Counter
	CredentialsRevoked prometheus.Counter
	RolesGranted       *prometheus.CounterVec
	RolesRevoked       *prometheus.CounterVec
	UnauthorizedCalls  *prometheus.CounterVec
	EndpointLatency    *prometheus.HistogramVec
	LedgerSize         prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attesta_credentials_issued_total",
			Help: "Total number of credentials issued",
		}),
		CredentialsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attesta_credentials_revoked_total",
			Help: "Total number of credentials revoked",
		}),
		RolesGranted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attesta_roles_granted_total",
			Help: "Total number of role grants, labeled by role",
		}, []string{"role"}),
		RolesRevoked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attesta_roles_revoked_total",
			Help: "Total number of role revocations, labeled by role",
		}, []string{"role"}),
		UnauthorizedCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attesta_unauthorized_calls_total",
			Help: "Total number of mutating calls rejected for missing roles, labeled by operation",
		}, []string{"operation"}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attesta_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		LedgerSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "attesta_ledger_size",
			Help: "Current number of credential records in the ledger",
		}),
	}
}
