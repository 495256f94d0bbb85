package handler

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"video_consultation/internal/service"
	"video_consultation/pkg/logger"
)

type Handlers struct {
	Session *SessionHandler
	Health  *HealthHandler
}

func NewHandlers(services *service.Services, db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Handlers {
	return &Handlers{
		Session: NewSessionHandler(services.Session, log),
		Health:  NewHealthHandler(db, rdb),
	}
}
