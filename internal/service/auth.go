package service

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"video_consultation/internal/config"
	"video_consultation/internal/domain"
	apperrors "video_consultation/pkg/errors"
	"video_consultation/pkg/logger"
)

// AuthService resolves a bearer credential to a caller identity. Token
// issuance lives in the identity service; this side only verifies.
type AuthService interface {
	ValidateToken(ctx context.Context, token string) (*domain.Identity, error)
}

type identityClaims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type authService struct {
	cfg config.JWTConfig
	log logger.Logger
}

func NewAuthService(cfg config.JWTConfig, log logger.Logger) AuthService {
	return &authService{cfg: cfg, log: log}
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.Identity, error) {
	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidToken
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}
	if !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	callerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}

	role := domain.Role(claims.Role)
	switch role {
	case domain.RolePatient, domain.RoleDoctor, domain.RoleAdmin:
	default:
		return nil, apperrors.ErrInvalidToken
	}

	return &domain.Identity{
		ID:          callerID,
		Role:        role,
		DisplayName: claims.Name,
	}, nil
}
