package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"synxronedit/internal/domain"
)

type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.EditSession) error {
	query := `
        INSERT INTO edit_sessions (file_uuid, owner_id, token, expires_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		session.FileUUID,
		session.OwnerID,
		session.Token,
		session.ExpiresAt,
	).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create edit session: %w", err)
	}

	return nil
}

// GetActive ищет действующий грант по паре токен+файл. Запрос идёт по
// уникальному индексу (token, file_uuid) — он стоит на горячем пути
// каждого скачивания и коллбэка от Editor Server.
func (r *SessionRepository) GetActive(ctx context.Context, fileUUID uuid.UUID, token string) (*domain.EditSession, error) {
	var session domain.EditSession
	query := `
        SELECT * FROM edit_sessions
        WHERE token = $1
          AND file_uuid = $2
          AND NOT revoked
          AND expires_at > CURRENT_TIMESTAMP
        LIMIT 1`

	err := r.db.GetContext(ctx, &session, query, token, fileUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvalidGrant
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get edit session: %w", err)
	}

	return &session, nil
}

// Revoke помечает грант отозванным, строка остаётся в таблице
func (r *SessionRepository) Revoke(ctx context.Context, sessionID int64) error {
	query := `UPDATE edit_sessions SET revoked = TRUE WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("failed to revoke edit session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrInvalidGrant
	}

	return nil
}
