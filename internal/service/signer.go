package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"synxronedit/internal/domain"
)

// Signer подписывает полезные нагрузки для Editor Server компактными
// токенами HS256 (header.payload.signature, base64url без паддинга).
// Проверка подписи на этой стороне не нужна — её делает Editor Server.
// Нагрузки типизированы: сериализация структуры стабильна, в отличие от
// map, где порядок полей плавает и ломает воспроизводимость подписи.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	return &Signer{secret: []byte(secret)}, nil
}

// Sign выдает компактный токен над произвольными типизированными claims
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// ConfigClaims — подписываемая часть конфигурации редактора
type ConfigClaims struct {
	Document     domain.Document       `json:"document"`
	DocumentType string                `json:"documentType"`
	EditorConfig domain.EditorSettings `json:"editorConfig"`
	jwt.RegisteredClaims
}

// CommandClaims — подписываемая команда для командного сервиса Editor Server
type CommandClaims struct {
	C   string `json:"c"`
	Key string `json:"key"`
	jwt.RegisteredClaims
}
