package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shiftmarket/internal/domain"
	"shiftmarket/pkg/logger"
)

type AuthService struct {
	sessions   domain.SessionStore
	sessionTTL time.Duration
	log        logger.Logger
}

func NewAuthService(sessions domain.SessionStore, sessionTTL time.Duration, log logger.Logger) *AuthService {
	return &AuthService{
		sessions:   sessions,
		sessionTTL: sessionTTL,
		log:        log,
	}
}

// Login issues an opaque access token for the user. Identity verification is
// delegated to the upstream identity provider; this layer only mints the
// session the realtime endpoint validates.
func (s *AuthService) Login(ctx context.Context, userID string, role domain.UserRole) (*domain.Session, error) {
	session := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Role:      role,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}

	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info("Session created", "user_id", userID, "role", string(role))
	return session, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if err := s.sessions.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.log.Info("Session deleted")
	return nil
}

func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.Session, error) {
	return s.sessions.GetSession(ctx, token)
}
