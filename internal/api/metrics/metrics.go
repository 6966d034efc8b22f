// Package metrics defines all custom Prometheus metrics for the patient
// service. It is the single source of truth for metric names, labels, and
// help strings. Metrics self-register with the default registry via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "patient"

// ── Lifecycle metrics ─────────────────────────────────────────────────────────

// PatientsCreatedTotal counts successfully created patient records, including
// creates whose billing provisioning is still pending reconciliation.
var PatientsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_created_total",
		Help:      "Total number of patient records created.",
	},
)

// OperationErrorsTotal counts failed lifecycle operations.
// Labels:
//   - op: "create", "update", or "delete"
//   - reason: caller-facing error category (e.g. "email_conflict", "not_found", "store_unavailable")
var OperationErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operation_errors_total",
		Help:      "Total number of failed patient lifecycle operations, by operation and reason.",
	},
	[]string{"op", "reason"},
)

// ── Billing metrics ───────────────────────────────────────────────────────────

// BillingProvisionsTotal counts billing provisioning attempts from the create
// pipeline. Label:
//   - result: "success" or "failure"
var BillingProvisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "billing_provisions_total",
		Help:      "Total number of billing account provisioning calls, by result.",
	},
	[]string{"result"},
)

// BillingProvisionDuration measures a single provisioning call end-to-end,
// including client-side retries.
var BillingProvisionDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "billing_provision_duration_seconds",
		Help:      "Duration of billing provisioning calls.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ReconcileAttemptsTotal counts reconciler retries of pending provisions.
// Label:
//   - result: "success" or "failure"
var ReconcileAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "billing_reconcile_attempts_total",
		Help:      "Total number of reconciliation retries for pending billing provisions.",
	},
	[]string{"result"},
)

// PendingProvisions tracks the number of provisions currently awaiting
// reconciliation, sampled on each reconciler pass.
var PendingProvisions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "billing_pending_provisions",
		Help:      "Number of billing provisions currently queued for reconciliation.",
	},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// EventsPublishedTotal counts change-event publish attempts. Label:
//   - result: "success" or "failure"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of patient change events published, by result.",
	},
	[]string{"result"},
)
