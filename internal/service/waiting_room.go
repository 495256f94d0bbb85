package service

import (
	"time"

	"github.com/google/uuid"

	"video_consultation/internal/domain"
	apperrors "video_consultation/pkg/errors"
)

// Waiting-room policy over the session's waiting map. Kept as pure
// functions so admission-ambiguity rules are testable without a store.

func addWaitingEntry(s *domain.VideoSession, participantID uuid.UUID, displayName string, now time.Time) domain.WaitingEntry {
	if s.WaitingRoom == nil {
		s.WaitingRoom = make(map[uuid.UUID]domain.WaitingEntry)
	}
	entry := domain.WaitingEntry{
		ParticipantID: participantID,
		DisplayName:   displayName,
		WaitingSince:  now,
	}
	// Upsert: rejoining resets the wait clock.
	s.WaitingRoom[participantID] = entry
	recomputeWaitingFlag(s)
	return entry
}

func removeWaitingEntry(s *domain.VideoSession, participantID uuid.UUID) (domain.WaitingEntry, bool) {
	entry, ok := s.WaitingRoom[participantID]
	if !ok {
		return domain.WaitingEntry{}, false
	}
	delete(s.WaitingRoom, participantID)
	recomputeWaitingFlag(s)
	return entry, true
}

// resolveAdmission maps an admission request to a concrete waiting
// participant. uuid.Nil is the sentinel "whoever is waiting": it
// resolves only when exactly one entry exists and refuses to guess
// otherwise.
func resolveAdmission(s *domain.VideoSession, participantID uuid.UUID) (uuid.UUID, error) {
	if participantID != uuid.Nil {
		if _, ok := s.WaitingRoom[participantID]; !ok {
			return uuid.Nil, apperrors.ErrNoWaitingEntry
		}
		return participantID, nil
	}

	switch len(s.WaitingRoom) {
	case 0:
		return uuid.Nil, apperrors.ErrNoWaitingEntry
	case 1:
		for id := range s.WaitingRoom {
			return id, nil
		}
	}
	return uuid.Nil, apperrors.ErrAmbiguousAdmission
}

// recomputeWaitingFlag derives WaitingRoomEnabled from the current map
// contents. The flag is never toggled as an independent write, so a
// concurrent join and admission cannot race it into an inconsistent
// state.
func recomputeWaitingFlag(s *domain.VideoSession) {
	waiting := false
	for id := range s.WaitingRoom {
		if id != s.DoctorID {
			waiting = true
			break
		}
	}
	s.Connection.WaitingRoomEnabled = waiting
}
