package ports

import "context"

// BillingClient provisions billing accounts in the downstream billing service.
// The call is synchronous with a bounded timeout. It must be safe to issue
// again with the same patientID (the remote side treats the patient ID as the
// account key), since the reconciler re-drives failed provisions.
type BillingClient interface {
	Provision(ctx context.Context, patientID, name, email string) error
}
