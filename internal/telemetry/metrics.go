package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters for the chat engine. All are registered on the default registry
// and exposed via Handler.
var (
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medichat_messages_total",
		Help: "Messages appended to conversation transcripts, by role.",
	}, []string{"role"})

	TriageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medichat_triage_total",
		Help: "Specialty classifications performed, by suggested specialty.",
	}, []string{"specialty"})

	HandoffsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medichat_handoffs_total",
		Help: "Doctor handoff offers and their outcomes.",
	}, []string{"outcome"})

	OracleFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medichat_oracle_failures_total",
		Help: "Failed calls to the text completion service.",
	})
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
