package repository

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"video_consultation/pkg/logger"
)

type Repositories struct {
	Session     SessionRepository
	Appointment AppointmentRepository
	Audit       AuditRepository
	RateLimit   RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, sessionTTL time.Duration, log logger.Logger) *Repositories {
	return &Repositories{
		Session:     NewSessionRepository(rdb, sessionTTL, log),
		Appointment: NewAppointmentRepository(db, log),
		Audit:       NewAuditRepository(db, log),
		RateLimit:   NewRateLimitRepository(rdb, log),
	}
}
