// storage.go
package storage

import (
	"context"
	"io"
)

// Storage определяет контракт хранилища содержимого файлов. Слой
// протокола редактора не знает, где лежат байты — на диске или в
// S3-совместимом бакете, бэкенд выбирается конфигурацией.
type Storage interface {
	// Read открывает содержимое файла на чтение
	Read(ctx context.Context, key string) (io.ReadCloser, error)
	// Write атомарно заменяет содержимое файла: параллельный читатель
	// видит либо старую версию целиком, либо новую, но не частичную
	Write(ctx context.Context, key string, data []byte) error
	// Exists проверяет, что байты файла физически существуют
	Exists(ctx context.Context, key string) (bool, error)
}
