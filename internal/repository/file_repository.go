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

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) GetByUUID(ctx context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := `SELECT * FROM files WHERE uuid = $1`

	err := r.db.GetContext(ctx, &file, query, fileUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

// Touch продвигает updated_at файла. Вызывается после записи нового
// содержимого: следующий вычисленный ключ документа станет другим.
func (r *FileRepository) Touch(ctx context.Context, fileUUID uuid.UUID, sizeBytes int64) (*domain.File, error) {
	var file domain.File
	query := `
        UPDATE files
        SET size_bytes = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2
        RETURNING *`

	err := r.db.GetContext(ctx, &file, query, sizeBytes, fileUUID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to touch file: %w", err)
	}

	return &file, nil
}

// UpdateSize обновляет размер без продвижения updated_at. Нужен для
// force-save с тегом auto-save: байты перезаписаны, ключ остаётся прежним.
func (r *FileRepository) UpdateSize(ctx context.Context, fileUUID uuid.UUID, sizeBytes int64) error {
	query := `UPDATE files SET size_bytes = $1 WHERE uuid = $2`

	result, err := r.db.ExecContext(ctx, query, sizeBytes, fileUUID)
	if err != nil {
		return fmt.Errorf("failed to update file size: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrFileNotFound
	}

	return nil
}
