package domain

import (
	"errors"
	"time"
)

var ErrPatientNotFound = errors.New("patient not found")
var ErrEmailConflict = errors.New("email already in use")
var ErrStoreUnavailable = errors.New("record store unavailable")
var ErrBillingUnavailable = errors.New("billing service unavailable")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")

// Patient is the core aggregate. The ID is assigned once at creation and is
// immutable afterwards; Email is unique across all stored patients (enforced
// by a unique index in the record store).
type Patient struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Name        string    `json:"name" bson:"name"`
	Email       string    `json:"email" bson:"email"`
	Address     string    `json:"address" bson:"address"`
	DateOfBirth time.Time `json:"date_of_birth" bson:"date_of_birth"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// BillingAccountRequest is the transient payload sent to the billing service
// when provisioning an account for a newly created patient. It is never
// persisted by this service.
type BillingAccountRequest struct {
	PatientID string `json:"patient_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// PendingProvision records a billing provisioning call that failed after the
// patient record was already persisted. The reconciler retries these until
// the billing side acknowledges.
type PendingProvision struct {
	PatientID  string    `json:"patient_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Attempts   int       `json:"attempts"`
	FirstError string    `json:"first_error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
