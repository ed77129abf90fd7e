package domain

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File описывает метаданные файла, которым владеет приложение.
// UpdatedAt служит версионными часами: ключ документа для редактора
// вычисляется из пары (UUID, UpdatedAt), поэтому любая запись нового
// содержимого обязана продвигать UpdatedAt.
type File struct {
	UUID      uuid.UUID `json:"uuid" db:"uuid"`
	Name      string    `json:"name" db:"name"`
	MIMEType  string    `json:"mime_type" db:"mime_type"`
	SizeBytes int64     `json:"size_bytes" db:"size_bytes"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Extension возвращает расширение имени файла без точки, в нижнем регистре
func (f *File) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.Name), "."))
}
