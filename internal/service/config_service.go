package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"synxronedit/internal/auth"
	"synxronedit/internal/domain"
	"synxronedit/internal/storage"
)

// FileStore — узкий контракт метаданных файлов, которыми владеет
// внешняя часть приложения
type FileStore interface {
	GetByUUID(ctx context.Context, fileUUID uuid.UUID) (*domain.File, error)
	Touch(ctx context.Context, fileUUID uuid.UUID, sizeBytes int64) (*domain.File, error)
	UpdateSize(ctx context.Context, fileUUID uuid.UUID, sizeBytes int64) error
}

// ConfigService собирает и подписывает конфигурацию редактора для клиента
type ConfigService struct {
	files           FileStore
	content         storage.Storage
	sessions        *SessionService
	signer          *Signer
	editorServerURL string
	baseURL         string
}

func NewConfigService(
	files FileStore,
	content storage.Storage,
	sessions *SessionService,
	signer *Signer,
	editorServerURL string,
	baseURL string,
) *ConfigService {
	return &ConfigService{
		files:           files,
		content:         content,
		sessions:        sessions,
		signer:          signer,
		editorServerURL: editorServerURL,
		baseURL:         baseURL,
	}
}

// Build выдает подписанную конфигурацию открытия документа: резолвит
// метаданные, выпускает грант, вычисляет ключ и подписывает весь объект
func (s *ConfigService) Build(ctx context.Context, fileUUID uuid.UUID, user *auth.User) (*domain.SignedConfig, error) {
	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, err
	}

	// Метаданные могут пережить содержимое, проверяем байты отдельно
	exists, err := s.content.Exists(ctx, file.UUID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to check stored content: %w", err)
	}
	if !exists {
		return nil, domain.ErrPhysicalFileMissing
	}

	session, err := s.sessions.Issue(ctx, user.ID, file.UUID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue edit session: %w", err)
	}

	ext := file.Extension()
	key := DocumentKey(file.UUID, file.UpdatedAt)

	claims := ConfigClaims{
		Document: domain.Document{
			FileType: ext,
			Key:      key,
			Title:    file.Name,
			URL:      fmt.Sprintf("%s/v1/editor/download/%s?token=%s", s.baseURL, file.UUID, session.Token),
			Permissions: domain.Permissions{
				Edit:     true,
				Download: true,
				Print:    true,
			},
		},
		DocumentType: DocumentTypeForExtension(ext),
		EditorConfig: domain.EditorSettings{
			Mode:        "edit",
			CallbackURL: fmt.Sprintf("%s/v1/editor/callback/%s?token=%s", s.baseURL, file.UUID, session.Token),
			Lang:        "ru",
			Region:      "ru-RU",
			User: domain.EditorUser{
				ID:   user.ID,
				Name: user.Name,
			},
			Customization: domain.Customization{
				Logo: domain.Logo{Visible: false},
			},
		},
	}

	token, err := s.signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign editor config: %w", err)
	}

	return &domain.SignedConfig{
		Config: domain.EditorConfig{
			Document:     claims.Document,
			DocumentType: claims.DocumentType,
			EditorConfig: claims.EditorConfig,
			Token:        token,
		},
		EditorServerURL: s.editorServerURL,
		UserID:          user.ID,
	}, nil
}
