package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"synxronedit/internal/domain"
)

// Фейковые реализации контрактов для тестов сервисного слоя

type fakeSessionStore struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[string]*domain.EditSession // token → session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]*domain.EditSession)}
}

func (f *fakeSessionStore) Create(_ context.Context, session *domain.EditSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	session.ID = f.nextID
	session.CreatedAt = time.Now()
	stored := *session
	f.sessions[session.Token] = &stored
	return nil
}

func (f *fakeSessionStore) GetActive(_ context.Context, fileUUID uuid.UUID, token string) (*domain.EditSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	session, ok := f.sessions[token]
	if !ok || session.FileUUID != fileUUID || !session.Active(time.Now()) {
		return nil, domain.ErrInvalidGrant
	}
	copied := *session
	return &copied, nil
}

func (f *fakeSessionStore) Revoke(_ context.Context, sessionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, session := range f.sessions {
		if session.ID == sessionID {
			session.Revoked = true
			return nil
		}
	}
	return domain.ErrInvalidGrant
}

type fakeFileStore struct {
	mu    sync.Mutex
	files map[uuid.UUID]*domain.File
}

func newFakeFileStore(files ...*domain.File) *fakeFileStore {
	f := &fakeFileStore{files: make(map[uuid.UUID]*domain.File)}
	for _, file := range files {
		stored := *file
		f.files[file.UUID] = &stored
	}
	return f
}

func (f *fakeFileStore) GetByUUID(_ context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[fileUUID]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	copied := *file
	return &copied, nil
}

func (f *fakeFileStore) Touch(_ context.Context, fileUUID uuid.UUID, sizeBytes int64) (*domain.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[fileUUID]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	file.SizeBytes = sizeBytes
	// Секундное разрешение ключа: продвигаем часы минимум на секунду
	file.UpdatedAt = file.UpdatedAt.Add(time.Second)
	copied := *file
	return &copied, nil
}

func (f *fakeFileStore) UpdateSize(_ context.Context, fileUUID uuid.UUID, sizeBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[fileUUID]
	if !ok {
		return domain.ErrFileNotFound
	}
	file.SizeBytes = sizeBytes
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Read(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.objects[key]
	if !ok {
		return nil, domain.ErrPhysicalFileMissing
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStorage) Write(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored := make([]byte, len(data))
	copy(stored, data)
	f.objects[key] = stored
	return nil
}

func (f *fakeStorage) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.objects[key]
	return ok, nil
}

func (f *fakeStorage) bytes(key string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.objects[key]
}

type publishedEvent struct {
	fileUUID string
	event    string
	payload  interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) Publish(fileUUID string, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{fileUUID: fileUUID, event: event, payload: payload})
}

func (f *fakePublisher) byName(event string) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var matched []publishedEvent
	for _, e := range f.events {
		if e.event == event {
			matched = append(matched, e)
		}
	}
	return matched
}
