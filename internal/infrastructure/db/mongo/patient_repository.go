package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pm-health/patient-service/internal/core/domain"
)

const collectionPatients = "patients"

// PatientRepository implements ports.PatientRepository on MongoDB. The unique
// index on email is the atomic backstop for the orchestrator's advisory
// pre-check: concurrent creates with the same email lose the race here, not
// in the service layer.
type PatientRepository struct {
	col *mongo.Collection
}

func NewPatientRepository(db *mongo.Database) *PatientRepository {
	return &PatientRepository{col: db.Collection(collectionPatients)}
}

// FindAll returns every stored patient record.
func (r *PatientRepository) FindAll(ctx context.Context) ([]*domain.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, storeErr("find patients", err)
	}
	defer cursor.Close(ctx)

	var patients []*domain.Patient
	if err := cursor.All(ctx, &patients); err != nil {
		return nil, storeErr("decode patients", err)
	}
	return patients, nil
}

// FindByID retrieves a patient by its identifier.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*domain.Patient, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p domain.Patient
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrPatientNotFound
		}
		return nil, storeErr("find patient", err)
	}
	return &p, nil
}

// ExistsByEmail reports whether any record holds the given email.
func (r *PatientRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

// ExistsByEmailExcluding reports whether a record other than excludeID holds
// the given email.
func (r *PatientRepository) ExistsByEmailExcluding(ctx context.Context, email, excludeID string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email, "_id": bson.M{"$ne": excludeID}})
}

func (r *PatientRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, storeErr("email check", err)
	}
	return n > 0, nil
}

// Save inserts when p.ID is empty, assigning a fresh UUID, and replaces the
// stored document otherwise. A duplicate-key violation on the email index
// maps to domain.ErrEmailConflict in both paths.
func (r *PatientRepository) Save(ctx context.Context, p *domain.Patient) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if p.ID == "" {
		p.ID = uuid.NewString()
		if _, err := r.col.InsertOne(ctx, p); err != nil {
			p.ID = ""
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrEmailConflict
			}
			return storeErr("insert patient", err)
		}
		return nil
	}

	result, err := r.col.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrEmailConflict
		}
		return storeErr("replace patient", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrPatientNotFound
	}
	return nil
}

// DeleteByID removes a patient document. Absence is reported as
// domain.ErrPatientNotFound; the service layer decides whether that matters.
func (r *PatientRepository) DeleteByID(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return storeErr("delete patient", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrPatientNotFound
	}
	return nil
}

// EnsureIndexes creates the unique email index the uniqueness invariant
// depends on. Must run before the server accepts writes.
func (r *PatientRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, uniqueIndex("email"))
	return err
}

// storeErr wraps driver failures so the error translator can classify them as
// StoreUnavailable without leaking driver detail to callers.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrStoreUnavailable, err)
}
