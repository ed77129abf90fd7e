package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"synxronedit/internal/domain"
	"synxronedit/internal/storage"
)

// Publisher — контракт рассылки событий подписчикам файла.
// Доставка best-effort, внутрипроцессная реализация живёт в internal/hub.
type Publisher interface {
	Publish(fileUUID string, event string, payload interface{})
}

// fileLocks сериализует запись содержимого по каждому файлу. Совместное
// редактирование означает параллельные коллбэки по одному файлу, и две
// одновременные записи не должны перемешиваться с Touch друг друга.
// Мьютексы по завершении не удаляются: их число ограничено числом
// редактируемых файлов.
type fileLocks struct {
	locks sync.Map
}

func (l *fileLocks) lock(key string) *sync.Mutex {
	mu, _ := l.locks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m
}

// CallbackService обрабатывает коллбэки сохранения от Editor Server.
// Решение по каждому коллбэку — чистая таблица над статусом плюс
// текущая запись PendingForceSaves, состояние между вызовами не хранится.
type CallbackService struct {
	files    FileStore
	content  storage.Storage
	sessions *SessionService
	pending  *PendingForceSaves
	fanout   Publisher
	client   *http.Client
	locks    fileLocks
}

func NewCallbackService(
	files FileStore,
	content storage.Storage,
	sessions *SessionService,
	pending *PendingForceSaves,
	fanout Publisher,
	fetchTimeout time.Duration,
) *CallbackService {
	if fetchTimeout == 0 {
		fetchTimeout = 30 * time.Second
	}
	return &CallbackService{
		files:    files,
		content:  content,
		sessions: sessions,
		pending:  pending,
		fanout:   fanout,
		client:   &http.Client{Timeout: fetchTimeout},
	}
}

// Process выполняет один коллбэк. Любая возвращённая ошибка деградирует
// на границе HTTP до {error:1} при транспортном 200: Editor Server
// трактует не-200 как фатальный сбой сессии.
func (s *CallbackService) Process(ctx context.Context, fileUUID uuid.UUID, token string, req *domain.CallbackRequest) error {
	session, err := s.sessions.Validate(ctx, fileUUID, token)
	if err != nil {
		return err
	}

	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return err
	}

	s.fanout.Publish(file.UUID.String(), domain.EventCallbackReceived, domain.CallbackEvent{
		FileUUID: file.UUID.String(),
		Status:   req.Status,
	})

	switch req.Status {
	case domain.CallbackStatusEditing:
		return nil

	case domain.CallbackStatusClosedNoSave:
		// Сессия редактирования закрыта, грант больше не понадобится
		s.revokeGrant(ctx, session)
		return nil

	case domain.CallbackStatusSave:
		if err := s.handleSave(ctx, file, req); err != nil {
			return err
		}
		// Отзываем только после успеха: при {error:1} редактор повторит
		// коллбэк, и грант ещё должен действовать
		s.revokeGrant(ctx, session)
		return nil

	case domain.CallbackStatusForceSave:
		return s.handleForceSave(ctx, file, req)

	case domain.CallbackStatusSaveError:
		log.Printf("Editor server reported save error for file %s: %s", file.UUID, req.Key)
		return nil

	case domain.CallbackStatusForceSaveError:
		return s.handleForceSaveError(file, req)

	default:
		log.Printf("Unrecognized callback status %d for file %s", req.Status, file.UUID)
		return nil
	}
}

// revokeGrant отзывает грант завершившейся сессии редактирования.
// Сбой отзыва не должен превращать уже обработанный коллбэк в {error:1},
// иначе редактор уйдёт в бесконечные повторы: грант в худшем случае
// истечёт по своему горизонту.
func (s *CallbackService) revokeGrant(ctx context.Context, session *domain.EditSession) {
	if err := s.sessions.Revoke(ctx, session.ID); err != nil {
		log.Printf("Failed to revoke edit session %d: %v", session.ID, err)
	}
}

// handleSave — статус 2: сессия закрыта с изменениями. Байты
// перезаписываются, updated_at продвигается, ключ ротируется всегда.
func (s *CallbackService) handleSave(ctx context.Context, file *domain.File, req *domain.CallbackRequest) error {
	mu := s.locks.lock(file.UUID.String())
	defer mu.Unlock()

	// Ключ сверяется со свежими метаданными строго под замком: пока
	// коллбэк стоял в очереди, параллельный коллбэк мог записать
	// содержимое и ротировать ключ, и проверка до замка пропустила бы
	// устаревший коллбэк поверх более новой версии
	file, err := s.files.GetByUUID(ctx, file.UUID)
	if err != nil {
		return err
	}
	if err := s.checkKey(file, req.Key); err != nil {
		return err
	}

	data, err := s.fetchDocument(ctx, req.URL)
	if err != nil {
		return err
	}

	if err := s.content.Write(ctx, file.UUID.String(), data); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	// Запись байтов и продвижение updated_at не атомарны; коллбэк
	// идемпотентен для фиксированного ключа, повтор безопасен
	if _, err := s.files.Touch(ctx, file.UUID, int64(len(data))); err != nil {
		return err
	}

	success := true
	s.fanout.Publish(file.UUID.String(), domain.EventDocumentSaved, domain.CallbackEvent{
		FileUUID: file.UUID.String(),
		Status:   req.Status,
		Success:  &success,
	})

	return nil
}

// handleForceSave — статус 6: завершён принудительный save. Ожидающий
// тег снимается до любых действий, чтобы запись не протекла при сбое.
// Ключ ротируется только для save-and-close: auto-save сохраняет байты,
// но оставляет ключ стабильным на время живой сессии редактирования.
func (s *CallbackService) handleForceSave(ctx context.Context, file *domain.File, req *domain.CallbackRequest) error {
	source, _ := s.pending.Take(req.Key)

	mu := s.locks.lock(file.UUID.String())
	defer mu.Unlock()

	// Как и в handleSave: сверка ключа только по свежему снимку под замком
	file, err := s.files.GetByUUID(ctx, file.UUID)
	if err != nil {
		return err
	}
	if err := s.checkKey(file, req.Key); err != nil {
		return err
	}

	data, err := s.fetchDocument(ctx, req.URL)
	if err != nil {
		return err
	}

	if err := s.content.Write(ctx, file.UUID.String(), data); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	if source == domain.ForceSaveSourceClose {
		if _, err := s.files.Touch(ctx, file.UUID, int64(len(data))); err != nil {
			return err
		}
	} else {
		if err := s.files.UpdateSize(ctx, file.UUID, int64(len(data))); err != nil {
			return err
		}
	}

	success := true
	savedAt := parseSavedAt(req.LastSave)
	s.fanout.Publish(file.UUID.String(), domain.EventDocumentForceSaved, domain.CallbackEvent{
		FileUUID: file.UUID.String(),
		Status:   req.Status,
		Success:  &success,
		Source:   source,
		SavedAt:  savedAt,
	})

	return nil
}

// handleForceSaveError — статус 7: файл не трогаем, тег снимаем, чтобы
// запись не ждала уборки по TTL, подписчикам уходит success=false
func (s *CallbackService) handleForceSaveError(file *domain.File, req *domain.CallbackRequest) error {
	source, _ := s.pending.Take(req.Key)

	log.Printf("Editor server reported force save error for file %s: %s", file.UUID, req.Key)

	success := false
	s.fanout.Publish(file.UUID.String(), domain.EventDocumentForceSaved, domain.CallbackEvent{
		FileUUID: file.UUID.String(),
		Status:   req.Status,
		Success:  &success,
		Source:   source,
	})

	return nil
}

// checkKey сверяет ключ коллбэка с ключом текущей версии файла.
// Несовпадение означает запоздавший или повторный коллбэк более старой
// версии, он не должен затереть свежее содержимое.
func (s *CallbackService) checkKey(file *domain.File, key string) error {
	current := DocumentKey(file.UUID, file.UpdatedAt)
	if key != current {
		return fmt.Errorf("%w: got %s, current %s", domain.ErrKeyMismatch, key, current)
	}
	return nil
}

// fetchDocument забирает отредактированные байты по URL из коллбэка
func (s *CallbackService) fetchDocument(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: callback has no document url", domain.ErrUpstreamFetch)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrUpstreamFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}

	return data, nil
}

func parseSavedAt(lastSave string) *time.Time {
	if lastSave == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, lastSave)
	if err != nil {
		return nil
	}
	return &t
}
