package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"video_consultation/internal/domain"
	apperrors "video_consultation/pkg/errors"
)

func newStoredSession(t *testing.T, repo *MemorySessionRepository) *domain.VideoSession {
	t.Helper()
	session := &domain.VideoSession{
		ID:            uuid.New(),
		AppointmentID: uuid.New(),
		PatientID:     uuid.New(),
		DoctorID:      uuid.New(),
		CreatedAt:     time.Now(),
		WaitingRoom:   make(map[uuid.UUID]domain.WaitingEntry),
	}
	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return session
}

func TestMemoryCreateIsExclusive(t *testing.T) {
	repo := NewMemorySessionRepository()
	session := newStoredSession(t, repo)

	err := repo.Create(context.Background(), session)
	if err != apperrors.ErrSessionExists {
		t.Fatalf("second Create() error = %v, want ErrSessionExists", err)
	}
}

func TestMemoryUpdateAbortLeavesStateUntouched(t *testing.T) {
	repo := NewMemorySessionRepository()
	session := newStoredSession(t, repo)

	_, err := repo.Update(context.Background(), session.AppointmentID, func(s *domain.VideoSession) error {
		s.WaitingRoom[uuid.New()] = domain.WaitingEntry{DisplayName: "ghost"}
		return apperrors.ErrForbidden
	})
	if err != apperrors.ErrForbidden {
		t.Fatalf("Update() error = %v, want ErrForbidden", err)
	}

	got, err := repo.Get(context.Background(), session.AppointmentID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.WaitingRoom) != 0 {
		t.Fatalf("waiting room = %v, want empty after aborted update", got.WaitingRoom)
	}
}

func TestMemoryConcurrentJoinsBothSurvive(t *testing.T) {
	repo := NewMemorySessionRepository()
	session := newStoredSession(t, repo)

	const joiners = 16
	var wg sync.WaitGroup
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			participant := uuid.New()
			_, err := repo.Update(context.Background(), session.AppointmentID, func(s *domain.VideoSession) error {
				s.WaitingRoom[participant] = domain.WaitingEntry{
					ParticipantID: participant,
					WaitingSince:  time.Now(),
				}
				return nil
			})
			if err != nil {
				t.Errorf("Update() error = %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := repo.Get(context.Background(), session.AppointmentID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.WaitingRoom) != joiners {
		t.Fatalf("waiting room size = %d, want %d", len(got.WaitingRoom), joiners)
	}
}
