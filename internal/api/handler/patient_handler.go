package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pm-health/patient-service/internal/core/ports"
)

// PatientHandler handles HTTP requests for patient lifecycle operations.
// Domain errors are returned as-is and translated centrally by the API error
// handler.
type PatientHandler struct {
	service ports.PatientService
}

func NewPatientHandler(service ports.PatientService) *PatientHandler {
	return &PatientHandler{service: service}
}

// List handles GET /v1/patients.
//
// @Summary      List all patients
// @Tags         patients
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listPatientsResponse
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /v1/patients [get]
func (h *PatientHandler) List(c echo.Context) error {
	patients, err := h.service.ListPatients(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListResponse(patients))
}

// Create handles POST /v1/patients. A 201 with billing_status
// "pending_reconciliation" means the record is persisted but the billing
// account is not yet provisioned.
//
// @Summary      Create a patient
// @Tags         patients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      patientRequest  true  "Patient details"
// @Success      201   {object}  createPatientResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /v1/patients [post]
func (h *PatientHandler) Create(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := h.service.CreatePatient(c.Request().Context(), toPatientInput(req))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, createPatientResponse{
		patientResponse: toPatientResponse(result.Patient),
		BillingStatus:   string(result.Billing),
	})
}

// Update handles PUT /v1/patients/:id — a full replacement of the mutable fields.
//
// @Summary      Update a patient
// @Tags         patients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "Patient ID"
// @Param        body  body      patientRequest  true  "Replacement patient details"
// @Success      200   {object}  patientResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /v1/patients/{id} [put]
func (h *PatientHandler) Update(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	detail, err := h.service.UpdatePatient(c.Request().Context(), c.Param("id"), toPatientInput(req))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, toPatientResponse(*detail))
}

// Delete handles DELETE /v1/patients/:id. Deleting an absent patient still
// returns 204: duplicate delete requests are deliberately indistinguishable.
//
// @Summary      Delete a patient
// @Tags         patients
// @Security     BearerAuth
// @Param        id  path  string  true  "Patient ID"
// @Success      204
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /v1/patients/{id} [delete]
func (h *PatientHandler) Delete(c echo.Context) error {
	if err := h.service.DeletePatient(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
