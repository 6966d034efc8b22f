package handler

import (
	"time"

	"github.com/pm-health/patient-service/internal/core/ports"
)

const dateLayout = "2006-01-02"

// toPatientInput maps the HTTP request to the service DTO. The date string is
// already validated against the datetime tag, so parsing cannot fail here.
func toPatientInput(req patientRequest) ports.PatientInput {
	dob, _ := time.Parse(dateLayout, req.DateOfBirth)
	return ports.PatientInput{
		Name:        req.Name,
		Email:       req.Email,
		Address:     req.Address,
		DateOfBirth: dob,
	}
}

func toPatientResponse(d ports.PatientDetail) patientResponse {
	return patientResponse{
		ID:          d.ID,
		Name:        d.Name,
		Email:       d.Email,
		Address:     d.Address,
		DateOfBirth: d.DateOfBirth.UTC().Format(dateLayout),
		CreatedAt:   d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   d.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toListResponse(items []ports.PatientDetail) listPatientsResponse {
	data := make([]patientResponse, len(items))
	for i, d := range items {
		data[i] = toPatientResponse(d)
	}
	return listPatientsResponse{Data: data, Total: len(data)}
}
