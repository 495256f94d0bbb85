package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeSessionCreated      = "session.created"
	EventTypeParticipantAdmitted = "session.participant_admitted"
	EventTypeParticipantRejected = "session.participant_rejected"
)

// SessionEvent is a notification-worthy lifecycle event. Events are
// fire-and-forget and not required for correctness.
type SessionEvent struct {
	ID            int64                  `json:"id"`
	EventTime     time.Time              `json:"event_time"`
	EventType     string                 `json:"event_type"`
	SessionID     uuid.UUID              `json:"session_id"`
	AppointmentID uuid.UUID              `json:"appointment_id"`
	ActorID       *uuid.UUID             `json:"actor_id,omitempty"`
	ActorRole     Role                   `json:"actor_role,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}
