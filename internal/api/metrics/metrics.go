// Package metrics defines and registers all custom Prometheus metrics for the
// back-office API. It is the single source of truth for metric names, labels,
// and help strings.
//
// All metrics are registered with the default Prometheus registry through
// promauto as soon as the package is imported.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "backoffice"

// ── Credential resolution ────────────────────────────────────────────────────

// AuthOutcomesTotal counts authenticate/register outcomes.
// Labels:
//   - action: "login" or "register"
//   - source: the credential source that resolved the call, or "none"
//   - result: "success" or "failure"
var AuthOutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_outcomes_total",
		Help:      "Total number of authentication and registration outcomes.",
	},
	[]string{"action", "source", "result"},
)

// LoginThrottledTotal counts login requests rejected by the failure limiter.
var LoginThrottledTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_throttled_total",
		Help:      "Total number of login requests rejected because of repeated failures.",
	},
)

// RegistrationsTotal counts what happened to the persistence step of a registration.
// Label:
//   - result: "persisted", "duplicate", "skipped" (primary unavailable) or "failed"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registrations, by persistence result.",
	},
	[]string{"result"},
)

// ── Backends ─────────────────────────────────────────────────────────────────

// BackendAvailable reports the last probe result per backend (1 = reachable).
// Label:
//   - backend: "primary_database" or "content_api"
var BackendAvailable = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "backend_available",
		Help:      "Reachability of each credential backend as of the last probe.",
	},
	[]string{"backend"},
)

// BackendErrorsTotal counts backend calls that failed and caused a fallthrough.
// Labels:
//   - backend: "primary_database" or "content_api"
//   - reason: "timeout" or "error"
var BackendErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_errors_total",
		Help:      "Total number of failed backend calls during credential resolution.",
	},
	[]string{"backend", "reason"},
)

// BackendCallDuration measures each bounded backend call.
var BackendCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backend_call_duration_seconds",
		Help:      "Duration of credential backend calls.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"backend"},
)

// ── Audit trail ──────────────────────────────────────────────────────────────

// AuditEventsTotal counts audit events handled by the async writer.
// Labels:
//   - result: "written", "failed" or "dropped" (queue full or stopped)
var AuditEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_events_total",
		Help:      "Total number of authentication audit events by write result.",
	},
	[]string{"result"},
)
