package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"video_consultation/internal/domain"
	apperrors "video_consultation/pkg/errors"
)

func waitingSession() *domain.VideoSession {
	return &domain.VideoSession{
		ID:            uuid.New(),
		AppointmentID: uuid.New(),
		PatientID:     uuid.New(),
		DoctorID:      uuid.New(),
		Connection:    domain.ConnectionConfig{WaitingRoomEnabled: true},
		WaitingRoom:   make(map[uuid.UUID]domain.WaitingEntry),
	}
}

func TestAddWaitingEntryUpsertResetsWaitClock(t *testing.T) {
	s := waitingSession()
	t0 := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	t1 := t0.Add(45 * time.Second)

	addWaitingEntry(s, s.PatientID, "P. Patient", t0)
	addWaitingEntry(s, s.PatientID, "P. Patient", t1)

	if len(s.WaitingRoom) != 1 {
		t.Fatalf("waiting room size = %d, want 1 (rejoin must not append)", len(s.WaitingRoom))
	}
	if got := s.WaitingRoom[s.PatientID].WaitingSince; !got.Equal(t1) {
		t.Fatalf("WaitingSince = %v, want reset to %v", got, t1)
	}
	if !s.Connection.WaitingRoomEnabled {
		t.Fatalf("WaitingRoomEnabled = false, want true while a patient waits")
	}
}

func TestResolveAdmissionSentinelSingleEntry(t *testing.T) {
	s := waitingSession()
	addWaitingEntry(s, s.PatientID, "P. Patient", time.Now())

	got, err := resolveAdmission(s, uuid.Nil)
	if err != nil {
		t.Fatalf("resolveAdmission() error = %v", err)
	}
	if got != s.PatientID {
		t.Fatalf("resolved = %v, want %v", got, s.PatientID)
	}
}

func TestResolveAdmissionSentinelAmbiguous(t *testing.T) {
	s := waitingSession()
	addWaitingEntry(s, uuid.New(), "first", time.Now())
	addWaitingEntry(s, uuid.New(), "second", time.Now())

	_, err := resolveAdmission(s, uuid.Nil)
	if err != apperrors.ErrAmbiguousAdmission {
		t.Fatalf("resolveAdmission() error = %v, want ErrAmbiguousAdmission", err)
	}
	if len(s.WaitingRoom) != 2 {
		t.Fatalf("waiting room size = %d, want 2 (ambiguity must not mutate)", len(s.WaitingRoom))
	}
}

func TestResolveAdmissionSentinelEmpty(t *testing.T) {
	s := waitingSession()

	_, err := resolveAdmission(s, uuid.Nil)
	if err != apperrors.ErrNoWaitingEntry {
		t.Fatalf("resolveAdmission() error = %v, want ErrNoWaitingEntry", err)
	}
}

func TestResolveAdmissionExplicitUnknownParticipant(t *testing.T) {
	s := waitingSession()
	addWaitingEntry(s, s.PatientID, "P. Patient", time.Now())

	_, err := resolveAdmission(s, uuid.New())
	if err != apperrors.ErrNoWaitingEntry {
		t.Fatalf("resolveAdmission() error = %v, want ErrNoWaitingEntry", err)
	}
}

func TestRemoveLastEntryDisablesWaitingRoom(t *testing.T) {
	s := waitingSession()
	other := uuid.New()
	addWaitingEntry(s, s.PatientID, "P. Patient", time.Now())
	addWaitingEntry(s, other, "walk-in", time.Now())

	if _, ok := removeWaitingEntry(s, other); !ok {
		t.Fatalf("removeWaitingEntry(other) = false, want true")
	}
	if !s.Connection.WaitingRoomEnabled {
		t.Fatalf("WaitingRoomEnabled = false, want true while one patient still waits")
	}

	if _, ok := removeWaitingEntry(s, s.PatientID); !ok {
		t.Fatalf("removeWaitingEntry(patient) = false, want true")
	}
	if s.Connection.WaitingRoomEnabled {
		t.Fatalf("WaitingRoomEnabled = true, want false once the room is empty")
	}
}
