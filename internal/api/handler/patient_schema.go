package handler

// patientRequest is the body accepted by create and update. DateOfBirth is an
// ISO-8601 calendar date; update replaces all four fields.
type patientRequest struct {
	Name        string `json:"name"          validate:"required,max=200"`
	Email       string `json:"email"         validate:"required,email"`
	Address     string `json:"address"       validate:"required,max=500"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
}

// patientResponse is the caller-facing record view.
type patientResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// createPatientResponse extends the record view with the billing outcome so
// callers can distinguish a fully provisioned create from one awaiting
// reconciliation.
type createPatientResponse struct {
	patientResponse
	BillingStatus string `json:"billing_status"`
}

type listPatientsResponse struct {
	Data  []patientResponse `json:"data"`
	Total int               `json:"total"`
}
