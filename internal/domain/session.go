package domain

import (
	"time"

	"github.com/google/uuid"
)

// EditSession — разовый грант доступа, выдаваемый при открытии документа.
// Токен встраивается в URL скачивания и коллбэка, чтобы Editor Server мог
// обращаться к файлу без полной аутентификации пользователя.
// Строка никогда не удаляется физически, только помечается revoked.
type EditSession struct {
	ID        int64     `json:"id" db:"id"`
	FileUUID  uuid.UUID `json:"file_uuid" db:"file_uuid"`
	OwnerID   string    `json:"owner_id" db:"owner_id"`
	Token     string    `json:"token" db:"token"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}

// Active сообщает, действует ли грант на момент now
func (s *EditSession) Active(now time.Time) bool {
	return !s.Revoked && now.Before(s.ExpiresAt)
}
