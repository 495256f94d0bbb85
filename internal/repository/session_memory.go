package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"video_consultation/internal/domain"
	apperrors "video_consultation/pkg/errors"
)

// MemorySessionRepository is an in-process SessionRepository used by
// tests and local development without Redis.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.VideoSession
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[uuid.UUID]*domain.VideoSession),
	}
}

func (r *MemorySessionRepository) Get(ctx context.Context, appointmentID uuid.UUID) (*domain.VideoSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[appointmentID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (r *MemorySessionRepository) Create(ctx context.Context, session *domain.VideoSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.AppointmentID]; ok {
		return apperrors.ErrSessionExists
	}
	r.sessions[session.AppointmentID] = session.Clone()
	return nil
}

func (r *MemorySessionRepository) Update(ctx context.Context, appointmentID uuid.UUID, mutate func(*domain.VideoSession) error) (*domain.VideoSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[appointmentID]
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	// Mutate a copy so an aborting mutator leaves the stored state alone.
	next := session.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}

	r.sessions[appointmentID] = next
	return next.Clone(), nil
}
