package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"synxronedit/internal/domain"
)

// SessionStore — контракт персистентности грантов
type SessionStore interface {
	Create(ctx context.Context, session *domain.EditSession) error
	GetActive(ctx context.Context, fileUUID uuid.UUID, token string) (*domain.EditSession, error)
	Revoke(ctx context.Context, sessionID int64) error
}

// SessionService выдает и проверяет гранты доступа для открытых сессий
// редактирования. Грант — отдельный случайный токен, не ключ документа:
// ключ версионирует содержимое, грант контролирует доступ.
type SessionService struct {
	sessions SessionStore
	ttl      time.Duration
}

func NewSessionService(sessions SessionStore, ttl time.Duration) *SessionService {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &SessionService{sessions: sessions, ttl: ttl}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Issue создает грант на файл с фиксированным горизонтом действия
func (s *SessionService) Issue(ctx context.Context, ownerID string, fileUUID uuid.UUID) (*domain.EditSession, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	session := &domain.EditSession{
		FileUUID:  fileUUID,
		OwnerID:   ownerID,
		Token:     token,
		ExpiresAt: time.Now().Add(s.ttl),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate проверяет грант по точной паре файл+токен
func (s *SessionService) Validate(ctx context.Context, fileUUID uuid.UUID, token string) (*domain.EditSession, error) {
	if token == "" {
		return nil, domain.ErrInvalidGrant
	}
	return s.sessions.GetActive(ctx, fileUUID, token)
}

// Revoke досрочно отзывает грант
func (s *SessionService) Revoke(ctx context.Context, sessionID int64) error {
	return s.sessions.Revoke(ctx, sessionID)
}
