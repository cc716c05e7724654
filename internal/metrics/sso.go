package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SSO-related Prometheus metrics. These are defined in a standalone package to
// avoid import cycles between the oidc client and HTTP packages.

var (
	LoginAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sso_login_attempts_total",
		Help: "Intentos de login SSO por resultado (success|failure)",
	}, []string{"outcome"})

	CallbackFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sso_callback_failures_total",
		Help: "Fallos del callback por motivo",
	}, []string{"reason"})

	DiscoveryRefresh = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sso_discovery_refresh_total",
		Help: "Refrescos exitosos de la metadata del provider",
	})

	DiscoveryRefreshErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sso_discovery_refresh_errors_total",
		Help: "Refrescos fallidos de la metadata del provider",
	})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_ms",
		Help:    "Latencia de requests HTTP en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"route", "status"})
)

// Register registers the SSO metrics on the given registry (or default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cs := []prometheus.Collector{
		LoginAttempts,
		CallbackFailures,
		DiscoveryRefresh,
		DiscoveryRefreshErrors,
		HTTPDuration,
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
