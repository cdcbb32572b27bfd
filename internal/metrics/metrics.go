// Package metrics exposes the converter's Prometheus counters, grounded on
// the prometheus/client_golang dependency the retrieval pack pulls in for
// its own metrics query client, re-purposed here for exposition rather than
// querying.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts conversion requests by outcome ("ok", "input_error", "validation_error").
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlfhir_bridge_requests_total",
			Help: "Total number of /convert requests, by outcome.",
		},
		[]string{"outcome"},
	)

	// TierEscalationsTotal counts extractions by the tier the cascade
	// reached (1, 2 or 3).
	TierEscalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlfhir_bridge_tier_escalations_total",
			Help: "Total number of extractions that reached each tier.",
		},
		[]string{"tier"},
	)

	// ValidatorFailoversTotal counts validations that fell back to the local
	// validator: one "failure" per attempted endpoint plus one
	// "local_fallback". Successful external validations are not counted.
	ValidatorFailoversTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlfhir_bridge_validator_failovers_total",
			Help: "Total number of external validator failures and local fallbacks, by endpoint and result.",
		},
		[]string{"endpoint", "result"},
	)

	// DroppedResourcesTotal counts factory failures that dropped a
	// resource from a bundle, by resource type.
	DroppedResourcesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlfhir_bridge_dropped_resources_total",
			Help: "Total number of resources dropped from a bundle due to factory errors.",
		},
		[]string{"resource_type"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, TierEscalationsTotal, ValidatorFailoversTotal, DroppedResourcesTotal)
}

// Handler returns the HTTP handler to mount at /metrics/prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}
