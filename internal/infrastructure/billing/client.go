// Package billing wraps the remote billing-provisioning endpoint behind a
// small synchronous client with a bounded timeout and a short retry budget.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pm-health/patient-service/internal/api/metrics"
	"github.com/pm-health/patient-service/internal/core/domain"
)

const (
	defaultTimeout = 5 * time.Second
	maxAttempts    = 3
	retryBackoff   = 200 * time.Millisecond
)

// Client calls the billing service's account-provisioning endpoint. The
// remote side keys accounts by patient ID, so re-issuing the same call is
// safe; the reconciler relies on that.
type Client struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// New creates a Client against baseURL. A non-positive timeout falls back to
// the default.
func New(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Provision creates or updates the billing account for a patient. Transport
// errors and 5xx responses are retried up to maxAttempts with a fixed
// backoff; anything still failing is returned wrapped in
// domain.ErrBillingUnavailable.
func (c *Client) Provision(ctx context.Context, patientID, name, email string) error {
	start := time.Now()
	defer func() {
		metrics.BillingProvisionDuration.Observe(time.Since(start).Seconds())
	}()

	payload, err := json.Marshal(domain.BillingAccountRequest{
		PatientID: patientID,
		Name:      name,
		Email:     email,
	})
	if err != nil {
		return fmt.Errorf("encode billing request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", domain.ErrBillingUnavailable, ctx.Err())
			case <-time.After(retryBackoff):
			}
		}

		retryable, err := c.post(ctx, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			break
		}
		c.logger.Debug().Err(err).Int("attempt", attempt).Str("patient_id", patientID).Msg("billing call failed, retrying")
	}

	return fmt.Errorf("%w: %v", domain.ErrBillingUnavailable, lastErr)
}

// post performs one provisioning attempt. The bool reports whether the
// failure is worth retrying (transport errors and 5xx yes, 4xx no).
func (c *Client) post(ctx context.Context, payload []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/billing-accounts", bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return true, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return false, nil
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("billing service returned %d", resp.StatusCode)
	default:
		return false, fmt.Errorf("billing service rejected request with %d", resp.StatusCode)
	}
}
