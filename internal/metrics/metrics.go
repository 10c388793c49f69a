package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipguard_requests_total",
		Help: "Total number of requests evaluated by the pipeline",
	})
	blockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipguard_blocked_total",
		Help: "Total number of requests rejected by the denylist gate",
	})
	gateErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipguard_gate_errors_total",
		Help: "Denylist lookups that failed and were let through",
	})
	auditErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ipguard_audit_errors_total",
		Help: "Audit entries lost because the store rejected the write",
	})
	geoLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipguard_geo_lookups_total",
		Help: "Geolocation resolutions by outcome (hit, miss, empty)",
	}, []string{"outcome"})
	findingsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipguard_findings_total",
		Help: "Findings upserted by the anomaly job, by category and action",
	}, []string{"category", "action"})
	anomalyRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipguard_anomaly_runs_total",
		Help: "Anomaly job passes by pass name and status",
	}, []string{"pass", "status"})
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry prometheus.Registerer) {
	registry.MustRegister(
		requestsTotal,
		blockedTotal,
		gateErrorsTotal,
		auditErrorsTotal,
		geoLookupsTotal,
		findingsTotal,
		anomalyRunsTotal,
	)
}

// IncRequest increments the evaluated requests counter.
func IncRequest() { requestsTotal.Inc() }

// IncBlocked increments the blocked requests counter.
func IncBlocked() { blockedTotal.Inc() }

// IncGateError increments the failed denylist lookup counter.
func IncGateError() { gateErrorsTotal.Inc() }

// IncAuditError increments the lost audit entry counter.
func IncAuditError() { auditErrorsTotal.Inc() }

// IncGeoLookup records a geolocation outcome.
func IncGeoLookup(outcome string) { geoLookupsTotal.WithLabelValues(outcome).Inc() }

// IncFinding records a finding upsert; action is "created" or "updated".
func IncFinding(category, action string) { findingsTotal.WithLabelValues(category, action).Inc() }

// IncAnomalyPass records the outcome of one anomaly pass.
func IncAnomalyPass(pass, status string) { anomalyRunsTotal.WithLabelValues(pass, status).Inc() }
