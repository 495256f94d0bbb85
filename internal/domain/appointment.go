package domain

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

// Appointment is the scheduling record this subsystem reads but never
// writes. Scheduling itself lives in a separate service.
type Appointment struct {
	ID          uuid.UUID         `json:"id"`
	PatientID   uuid.UUID         `json:"patient_id"`
	DoctorID    uuid.UUID         `json:"doctor_id"`
	Status      AppointmentStatus `json:"status"`
	ScheduledAt time.Time         `json:"scheduled_at"`
	CreatedAt   time.Time         `json:"created_at"`
}

// IsParticipant reports whether the caller is the appointment's patient,
// its doctor, or an administrator.
func (a *Appointment) IsParticipant(id Identity) bool {
	if id.Role == RoleAdmin {
		return true
	}
	return id.ID == a.PatientID || id.ID == a.DoctorID
}
