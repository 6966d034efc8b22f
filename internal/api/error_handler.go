package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pm-health/patient-service/internal/api/handler"
	"github.com/pm-health/patient-service/internal/api/metrics"
	"github.com/pm-health/patient-service/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. Fields
// carries per-field hints when the failure is attributable to specific input
// fields (validation failures, email conflicts).
type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to deterministic HTTP status codes.
//   - Attaches field-level hints where one input field caused the failure.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := translateError(err, log, c)
		countError(c, code)
		_ = c.JSON(code, body)
	}
}

func translateError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Validation failures carry the full field→message map.
	var ve *handler.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: ve.Fields}
	}

	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrEmailConflict):
		return http.StatusConflict, errorResponse{
			Error:  "email already in use",
			Fields: map[string]string{"email": "email address already in use"},
		}
	case errors.Is(err, domain.ErrPatientNotFound):
		return http.StatusNotFound, errorResponse{Error: "patient not found"}
	case errors.Is(err, domain.ErrStoreUnavailable):
		// Logged at error level: the caller gets the category, the operator
		// gets the cause.
		log.Error().Err(err).Str("path", c.Path()).Msg("record store unavailable")
		return http.StatusServiceUnavailable, errorResponse{Error: "record store unavailable"}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: "invalid credentials"}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, errorResponse{Error: "user not found"}
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, errorResponse{Error: "user already exists"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

func countError(c echo.Context, code int) {
	op := ""
	switch c.Request().Method {
	case http.MethodPost:
		op = "create"
	case http.MethodPut:
		op = "update"
	case http.MethodDelete:
		op = "delete"
	default:
		return
	}

	reason := "internal"
	switch code {
	case http.StatusBadRequest:
		reason = "validation_failed"
	case http.StatusConflict:
		reason = "email_conflict"
	case http.StatusNotFound:
		reason = "not_found"
	case http.StatusServiceUnavailable:
		reason = "store_unavailable"
	case http.StatusUnauthorized, http.StatusForbidden:
		return // auth failures are not lifecycle errors
	}
	metrics.OperationErrorsTotal.WithLabelValues(op, reason).Inc()
}
