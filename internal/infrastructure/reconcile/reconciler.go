// Package reconcile re-drives billing provisions that failed after the
// patient record was already persisted. It is the asynchronous half of the
// partial-failure policy: the create path records the debt, this worker pays
// it off.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pm-health/patient-service/internal/api/metrics"
	"github.com/pm-health/patient-service/internal/core/ports"
)

const (
	defaultInterval = 30 * time.Second
	batchSize       = 50
)

// Reconciler periodically scans the provision store and retries each pending
// entry against the billing service. Entries are only removed on an ack, so a
// crashed pass simply retries later (at-least-once, which the billing
// endpoint tolerates).
type Reconciler struct {
	provisions ports.ProvisionStore
	billing    ports.BillingClient
	interval   time.Duration
	logger     zerolog.Logger
}

// New creates a Reconciler. A non-positive interval falls back to the default.
func New(provisions ports.ProvisionStore, billing ports.BillingClient, interval time.Duration, logger zerolog.Logger) *Reconciler {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Reconciler{
		provisions: provisions,
		billing:    billing,
		interval:   interval,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled, processing one batch per tick.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.processOnce(ctx)
		}
	}
}

func (r *Reconciler) processOnce(ctx context.Context) {
	pending, err := r.provisions.List(ctx, batchSize)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list pending provisions")
		return
	}
	metrics.PendingProvisions.Set(float64(len(pending)))
	if len(pending) == 0 {
		return
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			return
		}
		if err := r.billing.Provision(ctx, p.PatientID, p.Name, p.Email); err != nil {
			metrics.ReconcileAttemptsTotal.WithLabelValues("failure").Inc()
			r.logger.Warn().Err(err).
				Str("patient_id", p.PatientID).
				Int("attempts", p.Attempts).
				Msg("billing reconciliation attempt failed")
			continue
		}

		metrics.ReconcileAttemptsTotal.WithLabelValues("success").Inc()
		if err := r.provisions.Remove(ctx, p.PatientID); err != nil {
			// The next pass re-provisions; harmless, since the call is
			// idempotent on the billing side.
			r.logger.Warn().Err(err).Str("patient_id", p.PatientID).Msg("failed to clear reconciled provision")
			continue
		}
		r.logger.Info().Str("patient_id", p.PatientID).Msg("billing account reconciled")
	}
}
