package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"video_consultation/internal/domain"
	"video_consultation/internal/repository"
	apperrors "video_consultation/pkg/errors"
	"video_consultation/pkg/logger"
)

// SessionService owns the consultation session lifecycle: idempotent
// creation, waiting-room admission and the screen-sharing overlay.
type SessionService interface {
	Create(ctx context.Context, appointmentID uuid.UUID, caller domain.Identity) (*domain.VideoSession, error)
	Get(ctx context.Context, appointmentID uuid.UUID, caller domain.Identity) (*domain.VideoSession, error)
	// JoinWaitingRoom returns a nil entry when the caller was already
	// admitted; that is a success, not an error, since a racing client
	// may retry after its own admission.
	JoinWaitingRoom(ctx context.Context, appointmentID uuid.UUID, caller domain.Identity, displayName string) (*domain.VideoSession, *domain.WaitingEntry, error)
	ListWaiting(ctx context.Context, appointmentID uuid.UUID, caller domain.Identity) ([]domain.WaitingEntry, error)
	// Admit removes a waiting participant. uuid.Nil as participantID is
	// the sentinel "admit whoever is waiting".
	Admit(ctx context.Context, appointmentID, participantID uuid.UUID, caller domain.Identity) (*domain.VideoSession, error)
	Reject(ctx context.Context, appointmentID, participantID uuid.UUID, caller domain.Identity) (*domain.VideoSession, error)
	ToggleScreenShare(ctx context.Context, appointmentID uuid.UUID, caller domain.Identity) (*domain.ScreenSharing, error)
}

// AdmissionFunc is the shared shape of Admit and Reject.
type AdmissionFunc func(ctx context.Context, appointmentID, participantID uuid.UUID, caller domain.Identity) (*domain.VideoSession, error)

type sessionService struct {
	sessionRepo     repository.SessionRepository
	appointmentRepo repository.AppointmentRepository
	auditRepo       repository.AuditRepository
	rtc             RTCService
	notifier        Notifier
	log             logger.Logger
	now             func() time.Time
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	appointmentRepo repository.AppointmentRepository,
	auditRepo repository.AuditRepository,
	rtc RTCService,
	notifier Notifier,
	log logger.Logger,
) SessionService {
	return &sessionService{
		sessionRepo:     sessionRepo,
		appointmentRepo: appointmentRepo,
		auditRepo:       auditRepo,
		rtc:             rtc,
		notifier:        notifier,
		log:             log,
		now:             time.Now,
	}
}

func (s *sessionService) Create(ctx context.Context, appointmentID uuid.UUID, caller domain.Identity) (*domain.VideoSession, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appointment.IsParticipant(caller) {
		return nil, apperrors.ErrForbidden
	}

	// Idempotent create: a second call returns the existing session.
	existing, err := s.sessionRepo.Get(ctx, appointmentID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrSessionNotFound) {
		return nil, err
	}

	connection, err := s.rtc.IssueConnectionConfig(ctx, uuid.NewString(), caller.ID, caller.Role)
	if err != nil {
		return nil, err
	}

	session := &domain.VideoSession{
		ID:            uuid.New(),
		AppointmentID: appointmentID,
		PatientID:     appointment.PatientID,
		DoctorID:      appointment.DoctorID,
		CreatedAt:     s.now(),
		Connection:    connection,
		WaitingRoom:   make(map[uuid.UUID]domain.WaitingEntry),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		if errors.Is(err, apperrors.ErrSessionExists) {
			// Lost a creation race; the winner's session is the session.
			return s.sessionRepo.Get(ctx, appointmentID)
		}
		s.log.Error("Failed to create session", "appointment_id", appointmentID, "error", err)
		return nil, err
	}

	s.recordEvent(ctx, session, caller, domain.EventTypeSessionCreated, nil)

	return session, nil
}

func (s *sessionService) Get(ctx context.Context, appointmentID uuid.UUID, caller domain.Identity) (*domain.VideoSession, error) {
	session, err := s.sessionRepo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !session.IsParticipant(caller) {
		return nil, apperrors.ErrForbidden
	}
	return session, nil
}

func (s *sessionService) JoinWaitingRoom(ctx context.Context, appointmentID uuid.UUID, caller domain.Identity, displayName string) (*domain.VideoSession, *domain.WaitingEntry, error) {
	if caller.Role != domain.RolePatient {
		return nil, nil, apperrors.ErrForbidden
	}
	if displayName == "" {
		displayName = caller.DisplayName
	}

	var entry *domain.WaitingEntry
	session, err := s.sessionRepo.Update(ctx, appointmentID, func(session *domain.VideoSession) error {
		if caller.ID != session.PatientID {
			return apperrors.ErrForbidden
		}
		_, waiting := session.WaitingRoom[caller.ID]
		if !waiting && !session.Connection.WaitingRoomEnabled {
			// Already admitted; joining again is a no-op success.
			entry = nil
			return nil
		}
		e := addWaitingEntry(session, caller.ID, displayName, s.now())
		entry = &e
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return session, entry, nil
}

func (s *sessionService) ListWaiting(ctx context.Context, appointmentID uuid.UUID, caller domain.Identity) ([]domain.WaitingEntry, error) {
	session, err := s.sessionRepo.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeDoctor(session, caller); err != nil {
		return nil, err
	}

	entries := make([]domain.WaitingEntry, 0, len(session.WaitingRoom))
	for _, entry := range session.WaitingRoom {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].WaitingSince.Before(entries[j].WaitingSince)
	})
	return entries, nil
}

func (s *sessionService) Admit(ctx context.Context, appointmentID, participantID uuid.UUID, caller domain.Identity) (*domain.VideoSession, error) {
	session, admitted, err := s.removeFromWaitingRoom(ctx, appointmentID, participantID, caller)
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, session, caller, domain.EventTypeParticipantAdmitted, map[string]interface{}{
		"participant_id": admitted.ParticipantID,
	})

	return session, nil
}

func (s *sessionService) Reject(ctx context.Context, appointmentID, participantID uuid.UUID, caller domain.Identity) (*domain.VideoSession, error) {
	session, rejected, err := s.removeFromWaitingRoom(ctx, appointmentID, participantID, caller)
	if err != nil {
		return nil, err
	}

	s.recordEvent(ctx, session, caller, domain.EventTypeParticipantRejected, map[string]interface{}{
		"participant_id": rejected.ParticipantID,
	})

	return session, nil
}

func (s *sessionService) removeFromWaitingRoom(ctx context.Context, appointmentID, participantID uuid.UUID, caller domain.Identity) (*domain.VideoSession, domain.WaitingEntry, error) {
	if caller.Role != domain.RoleDoctor && caller.Role != domain.RoleAdmin {
		return nil, domain.WaitingEntry{}, apperrors.ErrForbidden
	}

	var removed domain.WaitingEntry
	session, err := s.sessionRepo.Update(ctx, appointmentID, func(session *domain.VideoSession) error {
		if err := authorizeDoctor(session, caller); err != nil {
			return err
		}
		target, err := resolveAdmission(session, participantID)
		if err != nil {
			return err
		}
		removed, _ = removeWaitingEntry(session, target)
		return nil
	})
	if err != nil {
		return nil, domain.WaitingEntry{}, err
	}

	return session, removed, nil
}

func (s *sessionService) ToggleScreenShare(ctx context.Context, appointmentID uuid.UUID, caller domain.Identity) (*domain.ScreenSharing, error) {
	var state *domain.ScreenSharing
	_, err := s.sessionRepo.Update(ctx, appointmentID, func(session *domain.VideoSession) error {
		if !session.IsParticipant(caller) {
			return apperrors.ErrForbidden
		}
		if _, waiting := session.WaitingRoom[caller.ID]; waiting {
			// Not yet admitted to the call.
			return apperrors.ErrForbidden
		}

		if session.ScreenSharing != nil && session.ScreenSharing.Active {
			if session.ScreenSharing.ByParticipantID != caller.ID {
				return apperrors.ErrScreenShareConflict
			}
			session.ScreenSharing = nil
			state = &domain.ScreenSharing{Active: false, ByParticipantID: caller.ID}
			return nil
		}

		session.ScreenSharing = &domain.ScreenSharing{
			Active:          true,
			ByParticipantID: caller.ID,
			StartedAt:       s.now(),
		}
		ss := *session.ScreenSharing
		state = &ss
		return nil
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

// authorizeDoctor lets only the session's own doctor (or an admin)
// manage the waiting room.
func authorizeDoctor(session *domain.VideoSession, caller domain.Identity) error {
	if caller.Role == domain.RoleAdmin {
		return nil
	}
	if caller.Role == domain.RoleDoctor && caller.ID == session.DoctorID {
		return nil
	}
	return apperrors.ErrForbidden
}

func (s *sessionService) recordEvent(ctx context.Context, session *domain.VideoSession, caller domain.Identity, eventType string, payload map[string]interface{}) {
	actorID := caller.ID
	event := &domain.SessionEvent{
		EventTime:     s.now(),
		EventType:     eventType,
		SessionID:     session.ID,
		AppointmentID: session.AppointmentID,
		ActorID:       &actorID,
		ActorRole:     caller.Role,
		Payload:       payload,
	}

	if err := s.auditRepo.CreateEvent(ctx, event); err != nil {
		s.log.Warn("Failed to record session event", "event_type", eventType, "error", err)
	}
	s.notifier.Publish(ctx, event)
}
