package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Negotiation-related Prometheus metrics. Standalone package to avoid import
// cycles between the orchestrator and HTTP packages.

var (
	LoginsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridbridge_logins_started_total",
		Help: "Negociaciones de login iniciadas",
	})

	LoginsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridbridge_logins_completed_total",
		Help: "Negociaciones de login completadas",
	})

	LoginsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbridge_logins_failed_total",
		Help: "Negociaciones de login fallidas, por razón",
	}, []string{"reason"})

	CapabilitiesIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridbridge_capabilities_issued_total",
		Help: "Capabilities emitidas por el store local",
	})

	AuthorizationRoundTrips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridbridge_authorization_roundtrips_total",
		Help: "Round trips de autorización a backend services, por service",
	}, []string{"service"})

	StaleCallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gridbridge_stale_callbacks_total",
		Help: "Callbacks con token desconocido o expirado (browser replay)",
	})
)

// RegisterNegotiation registers the metrics on the given registry (or default if nil).
func RegisterNegotiation(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		LoginsStarted, LoginsCompleted, LoginsFailed,
		CapabilitiesIssued, AuthorizationRoundTrips, StaleCallbacks,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
