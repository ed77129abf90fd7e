package service

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DocumentKey вычисляет версионный ключ документа для Editor Server.
// Ключ детерминирован: одна и та же пара (файл, updated_at) всегда даёт
// один и тот же ключ, поэтому редактор может кэшировать документ и
// склеивать сессии совместного редактирования. Новый ключ появляется
// только после продвижения updated_at.
func DocumentKey(fileUUID uuid.UUID, modifiedAt time.Time) string {
	raw := fmt.Sprintf("%s-%s", fileUUID, modifiedAt.UTC().Format("20060102150405"))
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}
