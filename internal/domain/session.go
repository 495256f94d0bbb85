package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Numeric role values carried in the connection config, mirroring the
// publisher/subscriber split of the RTC provider grants.
const (
	ConnectionRoleDoctor  = 1
	ConnectionRolePatient = 2
)

// Identity is the resolved caller of a request: who they are and in
// which role the credential was issued.
type Identity struct {
	ID          uuid.UUID `json:"id"`
	Role        Role      `json:"role"`
	DisplayName string    `json:"display_name"`
}

// ConnectionConfig is the bundle a client needs to bootstrap the RTC
// provider. Issued once per session at creation time.
type ConnectionConfig struct {
	ProviderURL        string   `json:"provider_url"`
	ProviderSessionID  string   `json:"provider_session_id"`
	AccessToken        string   `json:"access_token"`
	ICEServers         []string `json:"ice_servers"`
	Role               int      `json:"role"`
	ScreenShareEnabled bool     `json:"screen_share_enabled"`
	RecordingEnabled   bool     `json:"recording_enabled"`
	WaitingRoomEnabled bool     `json:"waiting_room_enabled"`
}

type WaitingEntry struct {
	ParticipantID uuid.UUID `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	WaitingSince  time.Time `json:"waiting_since"`
}

type ScreenSharing struct {
	Active          bool      `json:"active"`
	ByParticipantID uuid.UUID `json:"by_participant_id"`
	StartedAt       time.Time `json:"started_at"`
}

// VideoSession is the durable record of one consultation, keyed by
// appointment. ID and AppointmentID are immutable for its lifetime.
type VideoSession struct {
	ID            uuid.UUID                   `json:"id"`
	AppointmentID uuid.UUID                   `json:"appointment_id"`
	PatientID     uuid.UUID                   `json:"patient_id"`
	DoctorID      uuid.UUID                   `json:"doctor_id"`
	CreatedAt     time.Time                   `json:"created_at"`
	Connection    ConnectionConfig            `json:"connection"`
	WaitingRoom   map[uuid.UUID]WaitingEntry  `json:"waiting_room,omitempty"`
	ScreenSharing *ScreenSharing              `json:"screen_sharing,omitempty"`
}

// Clone returns a deep copy so callers can hand sessions across
// goroutine boundaries without sharing the waiting-room map.
func (s *VideoSession) Clone() *VideoSession {
	c := *s
	if s.WaitingRoom != nil {
		c.WaitingRoom = make(map[uuid.UUID]WaitingEntry, len(s.WaitingRoom))
		for k, v := range s.WaitingRoom {
			c.WaitingRoom[k] = v
		}
	}
	if len(s.Connection.ICEServers) > 0 {
		c.Connection.ICEServers = append([]string(nil), s.Connection.ICEServers...)
	}
	if s.ScreenSharing != nil {
		ss := *s.ScreenSharing
		c.ScreenSharing = &ss
	}
	return &c
}

// IsParticipant reports whether the given caller belongs to this
// session. Administrators always pass.
func (s *VideoSession) IsParticipant(id Identity) bool {
	if id.Role == RoleAdmin {
		return true
	}
	return id.ID == s.PatientID || id.ID == s.DoctorID
}
