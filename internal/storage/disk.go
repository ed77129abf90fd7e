package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskStorage хранит содержимое файлов в локальном каталоге, ключ — имя файла
type DiskStorage struct {
	root string
}

func NewDiskStorage(root string) (*DiskStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root directory is required")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &DiskStorage{root: root}, nil
}

func (s *DiskStorage) path(key string) string {
	return filepath.Join(s.root, filepath.Base(key))
}

func (s *DiskStorage) Read(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, fmt.Errorf("failed to open stored file: %w", err)
	}
	return f, nil
}

// Write пишет во временный файл рядом с целевым и подменяет его через
// rename. Запись напрямую оставляла бы частично записанный файл видимым
// параллельным читателям.
func (s *DiskStorage) Write(_ context.Context, key string, data []byte) error {
	target := s.path(key)

	tmp, err := os.CreateTemp(s.root, filepath.Base(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to swap file into place: %w", err)
	}

	return nil
}

func (s *DiskStorage) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat stored file: %w", err)
	}
	return true, nil
}
