// Package metrics exposes Prometheus counters for store migrations, document
// rendering and AI provider calls.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "applytrack"

// AI request outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	migrationsApplied prometheus.Counter
	documentsRendered *prometheus.CounterVec
	aiRequests        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. Pass
// prometheus.NewRegistry() in tests to avoid clashing with the default registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		migrationsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "migrations_applied_total",
			Help:      "Schema migrations applied to the store.",
		}),
		documentsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "documents_total",
			Help:      "Template parts rendered, by part.",
		}, []string{"template_part"}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "AI provider requests, by provider and outcome.",
		}, []string{"provider", "outcome"}),
	}

	if reg != nil {
		reg.MustRegister(m.migrationsApplied, m.documentsRendered, m.aiRequests)
	}
	return m
}

// MigrationApplied counts one applied schema step.
func (m *Metrics) MigrationApplied() {
	if m == nil {
		return
	}
	m.migrationsApplied.Inc()
}

// DocumentRendered counts one rendered template part ("cover", "letter", "resume").
func (m *Metrics) DocumentRendered(part string) {
	if m == nil {
		return
	}
	m.documentsRendered.WithLabelValues(part).Inc()
}

// AIRequest counts one provider call.
func (m *Metrics) AIRequest(provider string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.aiRequests.WithLabelValues(provider, outcome).Inc()
}
