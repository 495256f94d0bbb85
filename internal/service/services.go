package service

import (
	"github.com/redis/go-redis/v9"

	"video_consultation/internal/config"
	"video_consultation/internal/repository"
	"video_consultation/pkg/logger"
)

type Services struct {
	Auth      AuthService
	Session   SessionService
	RTC       RTCService
	RateLimit RateLimitService
	Notifier  Notifier
}

func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, log logger.Logger) *Services {
	rtc := NewRTCService(cfg.LiveKit, log)
	notifier := NewNotifier(rdb, log)

	return &Services{
		Auth:      NewAuthService(cfg.JWT, log),
		Session:   NewSessionService(repos.Session, repos.Appointment, repos.Audit, rtc, notifier, log),
		RTC:       rtc,
		RateLimit: NewRateLimitService(repos.RateLimit, log),
		Notifier:  notifier,
	}
}
