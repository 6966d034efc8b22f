package domain

import "time"

// PatientEventType identifies the kind of change a PatientEvent describes.
type PatientEventType string

const (
	EventPatientCreated PatientEventType = "patient.created"
)

// PatientEvent is the change notification published to the event stream after
// a successful create. It carries enough record state for downstream consumers
// to act without a read-back.
type PatientEvent struct {
	EventID   string           `json:"event_id"`
	Type      PatientEventType `json:"type"`
	PatientID string           `json:"patient_id"`
	Name      string           `json:"name"`
	Email     string           `json:"email"`
	Timestamp time.Time        `json:"timestamp"`
}
