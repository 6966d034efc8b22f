package ports

import (
	"context"

	"github.com/pm-health/patient-service/internal/core/domain"
)

// EventPublisher appends change events to the stream other services tail.
// Delivery intent is at-least-once; a publish failure never fails the
// operation that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.PatientEvent) error
}

// ProvisionStore holds billing provisions that failed after the record write
// committed, until the reconciler re-drives them successfully.
type ProvisionStore interface {
	Put(ctx context.Context, p domain.PendingProvision) error
	// List returns up to limit pending provisions, oldest first where the
	// backing store supports ordering.
	List(ctx context.Context, limit int) ([]domain.PendingProvision, error)
	Remove(ctx context.Context, patientID string) error
}
