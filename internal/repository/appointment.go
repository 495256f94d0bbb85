package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"video_consultation/internal/domain"
	apperrors "video_consultation/pkg/errors"
	"video_consultation/pkg/logger"
)

// AppointmentRepository is a read-only view of the scheduling service's
// appointments table.
type AppointmentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error)
}

type appointmentRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewAppointmentRepository(db *pgxpool.Pool, log logger.Logger) AppointmentRepository {
	return &appointmentRepository{db: db, log: log}
}

func (r *appointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, status, scheduled_at, created_at
		FROM appointments
		WHERE id = $1
	`

	appointment := &domain.Appointment{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&appointment.ID, &appointment.PatientID, &appointment.DoctorID,
		&appointment.Status, &appointment.ScheduledAt, &appointment.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAppointmentNotFound
		}
		r.log.Error("Failed to get appointment by ID", "error", err)
		return nil, err
	}

	return appointment, nil
}
