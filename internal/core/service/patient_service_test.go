package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pm-health/patient-service/internal/core/domain"
	"github.com/pm-health/patient-service/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub collaborators
// ---------------------------------------------------------------------------

type stubPatientRepo struct {
	byID    map[string]*domain.Patient
	nextID  int
	saveErr error
	findErr error
}

func newStubPatientRepo() *stubPatientRepo {
	return &stubPatientRepo{byID: make(map[string]*domain.Patient)}
}

func (r *stubPatientRepo) FindAll(_ context.Context) ([]*domain.Patient, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	var out []*domain.Patient
	for _, p := range r.byID {
		clone := *p
		out = append(out, &clone)
	}
	return out, nil
}

func (r *stubPatientRepo) FindByID(_ context.Context, id string) (*domain.Patient, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrPatientNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *stubPatientRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, p := range r.byID {
		if p.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubPatientRepo) ExistsByEmailExcluding(_ context.Context, email, excludeID string) (bool, error) {
	for _, p := range r.byID {
		if p.Email == email && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubPatientRepo) Save(_ context.Context, p *domain.Patient) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	if p.ID == "" {
		r.nextID++
		p.ID = fmt.Sprintf("patient-%04d", r.nextID)
	}
	clone := *p
	r.byID[p.ID] = &clone
	return nil
}

func (r *stubPatientRepo) DeleteByID(_ context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return domain.ErrPatientNotFound
	}
	delete(r.byID, id)
	return nil
}

type provisionCall struct {
	patientID, name, email string
}

type stubBilling struct {
	err   error
	calls []provisionCall
}

func (b *stubBilling) Provision(_ context.Context, patientID, name, email string) error {
	b.calls = append(b.calls, provisionCall{patientID, name, email})
	return b.err
}

type stubPublisher struct {
	err    error
	events []domain.PatientEvent
}

func (p *stubPublisher) Publish(_ context.Context, event domain.PatientEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type stubProvisionStore struct {
	entries map[string]domain.PendingProvision
	putErr  error
}

func newStubProvisionStore() *stubProvisionStore {
	return &stubProvisionStore{entries: make(map[string]domain.PendingProvision)}
}

func (s *stubProvisionStore) Put(_ context.Context, p domain.PendingProvision) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.entries[p.PatientID] = p
	return nil
}

func (s *stubProvisionStore) List(_ context.Context, limit int) ([]domain.PendingProvision, error) {
	var out []domain.PendingProvision
	for _, p := range s.entries {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *stubProvisionStore) Remove(_ context.Context, patientID string) error {
	delete(s.entries, patientID)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

type fixture struct {
	repo       *stubPatientRepo
	billing    *stubBilling
	publisher  *stubPublisher
	provisions *stubProvisionStore
	svc        *PatientService
}

func newFixture() *fixture {
	f := &fixture{
		repo:       newStubPatientRepo(),
		billing:    &stubBilling{},
		publisher:  &stubPublisher{},
		provisions: newStubProvisionStore(),
	}
	f.svc = NewPatientService(f.repo, f.billing, f.publisher, f.provisions, discardLogger)
	return f
}

func adaInput() ports.PatientInput {
	return ports.PatientInput{
		Name:        "Ada",
		Email:       "ada@example.com",
		Address:     "1 Infinite Loop",
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// ---------------------------------------------------------------------------
// CreatePatient tests
// ---------------------------------------------------------------------------

func TestCreatePatient_Success(t *testing.T) {
	f := newFixture()

	result, err := f.svc.CreatePatient(context.Background(), adaInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Patient.ID == "" {
		t.Fatal("expected a generated patient ID")
	}
	if result.Billing != ports.BillingProvisioned {
		t.Errorf("expected billing status %q, got %q", ports.BillingProvisioned, result.Billing)
	}

	// Identifier must be stable across a subsequent read.
	stored, err := f.repo.FindByID(context.Background(), result.Patient.ID)
	if err != nil {
		t.Fatalf("created patient not retrievable: %v", err)
	}
	if stored.Email != "ada@example.com" {
		t.Errorf("stored email: want ada@example.com, got %s", stored.Email)
	}
}

func TestCreatePatient_ProvisionsBillingWithAssignedID(t *testing.T) {
	f := newFixture()

	result, err := f.svc.CreatePatient(context.Background(), adaInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.billing.calls) != 1 {
		t.Fatalf("expected 1 billing call, got %d", len(f.billing.calls))
	}
	call := f.billing.calls[0]
	if call.patientID != result.Patient.ID || call.name != "Ada" || call.email != "ada@example.com" {
		t.Errorf("billing called with wrong args: %+v", call)
	}
}

func TestCreatePatient_PublishesCreatedEvent(t *testing.T) {
	f := newFixture()

	result, _ := f.svc.CreatePatient(context.Background(), adaInput())

	if len(f.publisher.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(f.publisher.events))
	}
	event := f.publisher.events[0]
	if event.Type != domain.EventPatientCreated {
		t.Errorf("event type: want %s, got %s", domain.EventPatientCreated, event.Type)
	}
	if event.PatientID != result.Patient.ID {
		t.Errorf("event patient_id: want %s, got %s", result.Patient.ID, event.PatientID)
	}
	if event.EventID == "" {
		t.Error("event must carry a non-empty event_id")
	}
}

func TestCreatePatient_EmailConflict(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.CreatePatient(context.Background(), adaInput()); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}

	_, err := f.svc.CreatePatient(context.Background(), adaInput())
	if !errors.Is(err, domain.ErrEmailConflict) {
		t.Fatalf("expected ErrEmailConflict, got %v", err)
	}

	if len(f.repo.byID) != 1 {
		t.Errorf("record count changed on conflict: %d", len(f.repo.byID))
	}
	if len(f.billing.calls) != 1 {
		t.Errorf("billing must not be called for the conflicting create, got %d calls", len(f.billing.calls))
	}
}

func TestCreatePatient_StoreFailure_NothingDownstream(t *testing.T) {
	f := newFixture()
	f.repo.saveErr = fmt.Errorf("write: %w", domain.ErrStoreUnavailable)

	_, err := f.svc.CreatePatient(context.Background(), adaInput())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}

	if len(f.billing.calls) != 0 {
		t.Error("billing must not be attempted after a failed store write")
	}
	if len(f.publisher.events) != 0 {
		t.Error("no event may be published after a failed store write")
	}
}

func TestCreatePatient_BillingFailure_RecordStaysPersisted(t *testing.T) {
	f := newFixture()
	f.billing.err = errors.New("billing timeout")

	result, err := f.svc.CreatePatient(context.Background(), adaInput())
	if err != nil {
		t.Fatalf("create must succeed despite billing failure, got %v", err)
	}

	if result.Billing != ports.BillingPending {
		t.Errorf("expected billing status %q, got %q", ports.BillingPending, result.Billing)
	}
	if result.BillingError == nil {
		t.Error("expected the billing error to be reported")
	}

	// No compensating delete: the record must remain retrievable.
	if _, err := f.repo.FindByID(context.Background(), result.Patient.ID); err != nil {
		t.Errorf("record must remain persisted after billing failure: %v", err)
	}

	// The failed provision is queued for reconciliation.
	pending, ok := f.provisions.entries[result.Patient.ID]
	if !ok {
		t.Fatal("expected a pending provision entry")
	}
	if pending.Email != "ada@example.com" || pending.Attempts != 1 {
		t.Errorf("unexpected pending provision: %+v", pending)
	}
}

func TestCreatePatient_BillingFailure_EventStillPublished(t *testing.T) {
	f := newFixture()
	f.billing.err = errors.New("billing down")

	_, err := f.svc.CreatePatient(context.Background(), adaInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.publisher.events) != 1 {
		t.Errorf("expected event publish to run after billing failure, got %d events", len(f.publisher.events))
	}
}

func TestCreatePatient_PublishFailure_StillSucceeds(t *testing.T) {
	f := newFixture()
	f.publisher.err = errors.New("broker unreachable")

	result, err := f.svc.CreatePatient(context.Background(), adaInput())
	if err != nil {
		t.Fatalf("publish failure must not fail the create: %v", err)
	}
	if result.Billing != ports.BillingProvisioned {
		t.Errorf("expected provisioned billing status, got %q", result.Billing)
	}
}

// ---------------------------------------------------------------------------
// UpdatePatient tests
// ---------------------------------------------------------------------------

func TestUpdatePatient_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.svc.UpdatePatient(context.Background(), "missing", adaInput())
	if !errors.Is(err, domain.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestUpdatePatient_EmailTakenByOtherRecord(t *testing.T) {
	f := newFixture()
	first, _ := f.svc.CreatePatient(context.Background(), adaInput())

	other := adaInput()
	other.Email = "grace@example.com"
	if _, err := f.svc.CreatePatient(context.Background(), other); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}

	update := adaInput()
	update.Email = "grace@example.com"
	_, err := f.svc.UpdatePatient(context.Background(), first.Patient.ID, update)
	if !errors.Is(err, domain.ErrEmailConflict) {
		t.Fatalf("expected ErrEmailConflict, got %v", err)
	}
}

func TestUpdatePatient_OwnEmailAllowed(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.CreatePatient(context.Background(), adaInput())

	update := adaInput()
	update.Address = "2 Loop Road"
	detail, err := f.svc.UpdatePatient(context.Background(), created.Patient.ID, update)
	if err != nil {
		t.Fatalf("update to own email must succeed: %v", err)
	}
	if detail.Address != "2 Loop Road" {
		t.Errorf("address not replaced: %s", detail.Address)
	}
}

func TestUpdatePatient_ReplacesAllFields(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.CreatePatient(context.Background(), adaInput())

	update := ports.PatientInput{
		Name:        "Ada Lovelace",
		Email:       "ada@example.org",
		Address:     "12 Analytical Way",
		DateOfBirth: time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	detail, err := f.svc.UpdatePatient(context.Background(), created.Patient.ID, update)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if detail.Name != update.Name || detail.Email != update.Email ||
		detail.Address != update.Address || !detail.DateOfBirth.Equal(update.DateOfBirth) {
		t.Errorf("fields not fully replaced: %+v", detail)
	}
	if detail.ID != created.Patient.ID {
		t.Errorf("identifier must be immutable: %s != %s", detail.ID, created.Patient.ID)
	}
}

func TestUpdatePatient_NoBillingOrEvent(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.CreatePatient(context.Background(), adaInput())
	billingCalls := len(f.billing.calls)
	events := len(f.publisher.events)

	if _, err := f.svc.UpdatePatient(context.Background(), created.Patient.ID, adaInput()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.billing.calls) != billingCalls {
		t.Error("update must not call billing")
	}
	if len(f.publisher.events) != events {
		t.Error("update must not publish events")
	}
}

func TestUpdateFreesOldEmailForNewCreate(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.CreatePatient(context.Background(), adaInput())

	update := adaInput()
	update.Email = "ada@example.org"
	if _, err := f.svc.UpdatePatient(context.Background(), created.Patient.ID, update); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// The old email is free again.
	if _, err := f.svc.CreatePatient(context.Background(), adaInput()); err != nil {
		t.Fatalf("create with freed email must succeed: %v", err)
	}
}

// ---------------------------------------------------------------------------
// DeletePatient tests
// ---------------------------------------------------------------------------

func TestDeletePatient_Existing(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.CreatePatient(context.Background(), adaInput())

	if err := f.svc.DeletePatient(context.Background(), created.Patient.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.repo.FindByID(context.Background(), created.Patient.ID); !errors.Is(err, domain.ErrPatientNotFound) {
		t.Error("record must be gone after delete")
	}
}

func TestDeletePatient_AbsentIsNotAnError(t *testing.T) {
	f := newFixture()

	if err := f.svc.DeletePatient(context.Background(), "never-existed"); err != nil {
		t.Fatalf("idempotent delete must succeed: %v", err)
	}
}

func TestDeletePatient_DoubleDeleteIndistinguishable(t *testing.T) {
	f := newFixture()
	created, _ := f.svc.CreatePatient(context.Background(), adaInput())

	first := f.svc.DeletePatient(context.Background(), created.Patient.ID)
	second := f.svc.DeletePatient(context.Background(), created.Patient.ID)

	if first != nil || second != nil {
		t.Errorf("both deletes must succeed: first=%v second=%v", first, second)
	}
}

// ---------------------------------------------------------------------------
// ListPatients tests
// ---------------------------------------------------------------------------

func TestListPatients(t *testing.T) {
	f := newFixture()
	_, _ = f.svc.CreatePatient(context.Background(), adaInput())
	other := adaInput()
	other.Email = "grace@example.com"
	_, _ = f.svc.CreatePatient(context.Background(), other)

	patients, err := f.svc.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patients) != 2 {
		t.Errorf("expected 2 patients, got %d", len(patients))
	}
}

func TestListPatients_StoreFailure(t *testing.T) {
	f := newFixture()
	f.repo.findErr = fmt.Errorf("read: %w", domain.ErrStoreUnavailable)

	_, err := f.svc.ListPatients(context.Background())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
