package ports

import (
	"context"

	"github.com/pm-health/patient-service/internal/core/domain"
)

// PatientRepository defines persistence operations for patient records.
// All operations are atomic at single-record granularity; no multi-record
// transaction is exposed to callers.
type PatientRepository interface {
	FindAll(ctx context.Context) ([]*domain.Patient, error)
	// FindByID returns domain.ErrPatientNotFound when no record has the given ID.
	FindByID(ctx context.Context, id string) (*domain.Patient, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// ExistsByEmailExcluding reports whether a record other than excludeID
	// holds the given email. Used by update to allow a record to keep its own
	// address.
	ExistsByEmailExcluding(ctx context.Context, email, excludeID string) (bool, error)
	// Save inserts when p.ID is empty (assigning a fresh identifier on p) and
	// replaces the stored record otherwise. A unique-index violation on email
	// is returned as domain.ErrEmailConflict.
	Save(ctx context.Context, p *domain.Patient) error
	// DeleteByID returns domain.ErrPatientNotFound when nothing was deleted.
	DeleteByID(ctx context.Context, id string) error
}
