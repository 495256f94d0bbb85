package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"video_consultation/internal/domain"
	apperrors "video_consultation/pkg/errors"
	"video_consultation/pkg/logger"
)

// SessionRepository is the source of truth for video sessions, keyed by
// appointment id. Update is the read-modify-write primitive all mutating
// operations go through; concurrent updates must not lose writes.
type SessionRepository interface {
	Get(ctx context.Context, appointmentID uuid.UUID) (*domain.VideoSession, error)
	// Create stores the session only if none exists yet for the
	// appointment; returns ErrSessionExists otherwise.
	Create(ctx context.Context, session *domain.VideoSession) error
	// Update applies mutate to the current session state and persists
	// the result atomically. The mutator may return an error to abort.
	Update(ctx context.Context, appointmentID uuid.UUID, mutate func(*domain.VideoSession) error) (*domain.VideoSession, error)
}

const sessionUpdateRetries = 5

type sessionRepository struct {
	redis *redis.Client
	ttl   time.Duration
	log   logger.Logger
}

func NewSessionRepository(rdb *redis.Client, ttl time.Duration, log logger.Logger) SessionRepository {
	return &sessionRepository{redis: rdb, ttl: ttl, log: log}
}

func sessionKey(appointmentID uuid.UUID) string {
	return fmt.Sprintf("session:appointment:%s", appointmentID)
}

func (r *sessionRepository) Get(ctx context.Context, appointmentID uuid.UUID) (*domain.VideoSession, error) {
	data, err := r.redis.Get(ctx, sessionKey(appointmentID)).Bytes()
	if err == redis.Nil {
		return nil, apperrors.ErrSessionNotFound
	}
	if err != nil {
		r.log.Error("Failed to read session", "appointment_id", appointmentID, "error", err)
		return nil, err
	}

	var session domain.VideoSession
	if err := json.Unmarshal(data, &session); err != nil {
		r.log.Error("Failed to decode session", "appointment_id", appointmentID, "error", err)
		return nil, err
	}

	return &session, nil
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.VideoSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	ok, err := r.redis.SetNX(ctx, sessionKey(session.AppointmentID), data, r.ttl).Result()
	if err != nil {
		r.log.Error("Failed to create session", "appointment_id", session.AppointmentID, "error", err)
		return err
	}
	if !ok {
		return apperrors.ErrSessionExists
	}

	return nil
}

// Update runs an optimistic WATCH transaction: the session document is
// re-read and the mutator re-applied whenever a concurrent write lands
// first, so two patients joining the waiting room at once both survive.
func (r *sessionRepository) Update(ctx context.Context, appointmentID uuid.UUID, mutate func(*domain.VideoSession) error) (*domain.VideoSession, error) {
	key := sessionKey(appointmentID)
	var updated *domain.VideoSession

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return apperrors.ErrSessionNotFound
		}
		if err != nil {
			return err
		}

		var session domain.VideoSession
		if err := json.Unmarshal(data, &session); err != nil {
			return err
		}

		if err := mutate(&session); err != nil {
			return err
		}

		out, err := json.Marshal(&session)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}

		updated = &session
		return nil
	}

	for i := 0; i < sessionUpdateRetries; i++ {
		err := r.redis.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}

	r.log.Error("Session update kept conflicting", "appointment_id", appointmentID)
	return nil, apperrors.ErrInternalServer
}
