package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"video_consultation/internal/domain"
	"video_consultation/pkg/logger"
)

type AuditRepository interface {
	CreateEvent(ctx context.Context, event *domain.SessionEvent) error
}

type auditRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAuditRepository(db *pgxpool.Pool, log logger.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) CreateEvent(ctx context.Context, event *domain.SessionEvent) error {
	query := `
		INSERT INTO session_events (event_time, event_type, session_id, appointment_id, actor_id, actor_role, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		event.EventTime, event.EventType, event.SessionID,
		event.AppointmentID, event.ActorID, event.ActorRole, event.Payload,
	).Scan(&event.ID)

	if err != nil {
		r.log.Error("Failed to create session event", "event_type", event.EventType, "error", err)
		return err
	}

	return nil
}
