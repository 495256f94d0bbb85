package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"

	"video_consultation/internal/config"
	"video_consultation/internal/domain"
	apperrors "video_consultation/pkg/errors"
	"video_consultation/pkg/logger"
)

// RTCService talks to the external real-time communications provider.
// It issues the opaque token/ICE bundle a client needs to connect; the
// media transport itself never passes through this system.
type RTCService interface {
	IssueConnectionConfig(ctx context.Context, providerRoomName string, identity uuid.UUID, role domain.Role) (domain.ConnectionConfig, error)
}

type rtcService struct {
	cfg config.LiveKitConfig
	log logger.Logger
}

func NewRTCService(cfg config.LiveKitConfig, log logger.Logger) RTCService {
	return &rtcService{cfg: cfg, log: log}
}

func (s *rtcService) IssueConnectionConfig(ctx context.Context, providerRoomName string, identity uuid.UUID, role domain.Role) (domain.ConnectionConfig, error) {
	at := auth.NewAccessToken(s.cfg.APIKey, s.cfg.APISecret)

	canPublish := true
	canSubscribe := true
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         providerRoomName,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}
	if role == domain.RoleDoctor || role == domain.RoleAdmin {
		grant.RoomAdmin = true
	}

	at.AddGrant(grant).
		SetIdentity(identity.String()).
		SetValidFor(s.cfg.TokenTTL)

	token, err := at.ToJWT()
	if err != nil {
		s.log.Error("Failed to generate provider token", "room", providerRoomName, "error", err)
		return domain.ConnectionConfig{}, apperrors.ErrInternalServer
	}

	connectionRole := domain.ConnectionRolePatient
	if role == domain.RoleDoctor || role == domain.RoleAdmin {
		connectionRole = domain.ConnectionRoleDoctor
	}

	return domain.ConnectionConfig{
		ProviderURL:        s.cfg.URL,
		ProviderSessionID:  providerRoomName,
		AccessToken:        token,
		ICEServers:         s.cfg.ICEServers,
		Role:               connectionRole,
		ScreenShareEnabled: true,
		RecordingEnabled:   s.cfg.RecordingEnabled,
		WaitingRoomEnabled: true,
	}, nil
}
