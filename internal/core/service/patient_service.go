package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pm-health/patient-service/internal/api/metrics"
	"github.com/pm-health/patient-service/internal/core/domain"
	"github.com/pm-health/patient-service/internal/core/ports"
)

// PatientService orchestrates the write path: validate, persist, provision the
// downstream billing account, publish the change event. Each operation is a
// strictly sequential pipeline; once a step commits, a later step's failure
// does not undo it.
type PatientService struct {
	repo       ports.PatientRepository
	billing    ports.BillingClient
	publisher  ports.EventPublisher
	provisions ports.ProvisionStore
	logger     zerolog.Logger
}

func NewPatientService(
	repo ports.PatientRepository,
	billing ports.BillingClient,
	publisher ports.EventPublisher,
	provisions ports.ProvisionStore,
	logger zerolog.Logger,
) *PatientService {
	return &PatientService{
		repo:       repo,
		billing:    billing,
		publisher:  publisher,
		provisions: provisions,
		logger:     logger,
	}
}

// ListPatients returns all stored patient records.
func (s *PatientService) ListPatients(ctx context.Context) ([]ports.PatientDetail, error) {
	patients, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}

	out := make([]ports.PatientDetail, len(patients))
	for i, p := range patients {
		out[i] = toDetail(p)
	}
	return out, nil
}

// CreatePatient runs the create pipeline.
//
// The email pre-check is a fast path only; the store's unique index is the
// real guarantee, and a concurrent duplicate surfaces from Save as
// domain.ErrEmailConflict. A billing failure after the record committed does
// NOT roll the record back: the create still succeeds, the result carries
// BillingPending, and the provision is handed to the reconciler. A publish
// failure is logged and metered but never changes the outcome.
func (s *PatientService) CreatePatient(ctx context.Context, input ports.PatientInput) (*ports.CreatePatientResult, error) {
	exists, err := s.repo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("create patient: email check: %w", err)
	}
	if exists {
		return nil, domain.ErrEmailConflict
	}

	now := time.Now().UTC()
	patient := &domain.Patient{
		Name:        input.Name,
		Email:       input.Email,
		Address:     input.Address,
		DateOfBirth: input.DateOfBirth,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Save(ctx, patient); err != nil {
		s.logger.Error().Err(err).Str("email", input.Email).Msg("failed to persist patient")
		return nil, fmt.Errorf("create patient: %w", err)
	}

	result := &ports.CreatePatientResult{
		Patient: toDetail(patient),
		Billing: ports.BillingProvisioned,
	}

	if err := s.billing.Provision(ctx, patient.ID, patient.Name, patient.Email); err != nil {
		// Record stays persisted. Favor durability of patient data over
		// cross-system consistency; the reconciler re-drives the provision.
		s.logger.Warn().Err(err).Str("patient_id", patient.ID).Msg("billing provisioning failed, queued for reconciliation")
		metrics.BillingProvisionsTotal.WithLabelValues("failure").Inc()

		result.Billing = ports.BillingPending
		result.BillingError = err
		s.queueProvision(ctx, patient, err)
	} else {
		metrics.BillingProvisionsTotal.WithLabelValues("success").Inc()
	}

	if err := s.publisher.Publish(ctx, newCreatedEvent(patient)); err != nil {
		// Side notification only. Never surfaced as an operation failure.
		s.logger.Warn().Err(err).Str("patient_id", patient.ID).Msg("failed to publish patient.created event")
		metrics.EventsPublishedTotal.WithLabelValues("failure").Inc()
	} else {
		metrics.EventsPublishedTotal.WithLabelValues("success").Inc()
	}

	metrics.PatientsCreatedTotal.Inc()
	s.logger.Info().
		Str("patient_id", patient.ID).
		Str("billing_status", string(result.Billing)).
		Msg("patient created")

	return result, nil
}

// UpdatePatient replaces all four mutable fields of an existing record. No
// billing or event step runs on update; only create provisions downstream
// state.
func (s *PatientService) UpdatePatient(ctx context.Context, id string, input ports.PatientInput) (*ports.PatientDetail, error) {
	patient, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update patient: %w", err)
	}

	taken, err := s.repo.ExistsByEmailExcluding(ctx, input.Email, id)
	if err != nil {
		return nil, fmt.Errorf("update patient: email check: %w", err)
	}
	if taken {
		return nil, domain.ErrEmailConflict
	}

	patient.Name = input.Name
	patient.Email = input.Email
	patient.Address = input.Address
	patient.DateOfBirth = input.DateOfBirth
	patient.UpdatedAt = time.Now().UTC()

	if err := s.repo.Save(ctx, patient); err != nil {
		s.logger.Error().Err(err).Str("patient_id", id).Msg("failed to update patient")
		return nil, fmt.Errorf("update patient: %w", err)
	}

	s.logger.Info().Str("patient_id", id).Msg("patient updated")
	detail := toDetail(patient)
	return &detail, nil
}

// DeletePatient removes a record. Deleting an already-absent record succeeds,
// so duplicate delete requests are indistinguishable from the first.
func (s *PatientService) DeletePatient(ctx context.Context, id string) error {
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrPatientNotFound) {
			s.logger.Debug().Str("patient_id", id).Msg("delete of absent patient ignored")
			return nil
		}
		return fmt.Errorf("delete patient: %w", err)
	}

	s.logger.Info().Str("patient_id", id).Msg("patient deleted")
	return nil
}

// queueProvision is best effort: if the provision store is also down the
// failure is already visible through the create result and metrics.
func (s *PatientService) queueProvision(ctx context.Context, p *domain.Patient, cause error) {
	pending := domain.PendingProvision{
		PatientID:  p.ID,
		Name:       p.Name,
		Email:      p.Email,
		Attempts:   1,
		FirstError: cause.Error(),
		RecordedAt: time.Now().UTC(),
	}
	if err := s.provisions.Put(ctx, pending); err != nil {
		s.logger.Error().Err(err).Str("patient_id", p.ID).Msg("failed to queue pending provision")
	}
}

func newCreatedEvent(p *domain.Patient) domain.PatientEvent {
	return domain.PatientEvent{
		EventID:   uuid.NewString(),
		Type:      domain.EventPatientCreated,
		PatientID: p.ID,
		Name:      p.Name,
		Email:     p.Email,
		Timestamp: time.Now().UTC(),
	}
}

func toDetail(p *domain.Patient) ports.PatientDetail {
	return ports.PatientDetail{
		ID:          p.ID,
		Name:        p.Name,
		Email:       p.Email,
		Address:     p.Address,
		DateOfBirth: p.DateOfBirth,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
