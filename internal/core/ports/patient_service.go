package ports

import (
	"context"
	"time"
)

// PatientInput carries the four mutable fields accepted by create and update.
// Update applies a full replacement, not a merge.
type PatientInput struct {
	Name        string
	Email       string
	Address     string
	DateOfBirth time.Time
}

// BillingStatus reports what happened to the billing provisioning step of a
// create. A record can be durably persisted while billing is still pending;
// the two outcomes are deliberately distinguishable.
type BillingStatus string

const (
	// BillingProvisioned means the billing account call was acknowledged.
	BillingProvisioned BillingStatus = "provisioned"
	// BillingPending means the record persisted but provisioning failed and
	// was handed to the reconciler. The create as a whole still succeeded.
	BillingPending BillingStatus = "pending_reconciliation"
)

// PatientDetail is the caller-facing view of a stored patient.
type PatientDetail struct {
	ID          string
	Name        string
	Email       string
	Address     string
	DateOfBirth time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreatePatientResult is returned by CreatePatient. Billing carries the
// partial-failure signal: the patient is persisted in either case.
type CreatePatientResult struct {
	Patient PatientDetail
	Billing BillingStatus
	// BillingError holds the provisioning failure when Billing is
	// BillingPending. It is reported for operator visibility, never used to
	// unwind the store write.
	BillingError error
}

// PatientService defines the patient lifecycle use-cases.
type PatientService interface {
	ListPatients(ctx context.Context) ([]PatientDetail, error)
	CreatePatient(ctx context.Context, input PatientInput) (*CreatePatientResult, error)
	UpdatePatient(ctx context.Context, id string, input PatientInput) (*PatientDetail, error)
	// DeletePatient is idempotent: deleting an absent record is not an error.
	DeletePatient(ctx context.Context, id string) error
}
