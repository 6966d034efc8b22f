package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/pm-health/patient-service/internal/core/domain"
)

const pendingKeyPrefix = "billing:pending:"

// ProvisionStore keeps billing provisions that failed after the patient
// record committed. Entries live under billing:pending:<patient_id> and are
// removed once the reconciler gets an ack from the billing service. No TTL:
// a pending provision must survive until reconciled.
type ProvisionStore struct {
	client *redis.Client
}

func NewProvisionStore(client *redis.Client) *ProvisionStore {
	return &ProvisionStore{client: client}
}

// Put records (or overwrites) a pending provision for the patient.
func (s *ProvisionStore) Put(ctx context.Context, p domain.PendingProvision) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pending provision: %w", err)
	}
	if err := s.client.Set(ctx, pendingKeyPrefix+p.PatientID, payload, 0).Err(); err != nil {
		return fmt.Errorf("store pending provision: %w", err)
	}
	return nil
}

// List returns up to limit pending provisions. SCAN order is unspecified,
// which is acceptable: every entry is retried eventually.
func (s *ProvisionStore) List(ctx context.Context, limit int) ([]domain.PendingProvision, error) {
	var out []domain.PendingProvision

	iter := s.client.Scan(ctx, 0, pendingKeyPrefix+"*", int64(limit)).Iterator()
	for iter.Next(ctx) {
		if limit > 0 && len(out) >= limit {
			break
		}
		raw, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue // removed between SCAN and GET
			}
			return nil, fmt.Errorf("read pending provision: %w", err)
		}
		var p domain.PendingProvision
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode pending provision %s: %w", iter.Val(), err)
		}
		out = append(out, p)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan pending provisions: %w", err)
	}
	return out, nil
}

// Remove drops the pending provision for the patient, if any.
func (s *ProvisionStore) Remove(ctx context.Context, patientID string) error {
	return s.client.Del(ctx, pendingKeyPrefix+patientID).Err()
}
