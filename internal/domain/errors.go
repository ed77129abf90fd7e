package domain

import "errors"

// Типизированные ошибки протокольного слоя. Хендлеры сопоставляют их
// с HTTP-статусами через errors.Is, коллбэк-эндпоинт деградирует любую
// из них до {error:1} при транспортном 200.
var (
	ErrFileNotFound        = errors.New("file not found")
	ErrPhysicalFileMissing = errors.New("stored file content is missing")
	ErrInvalidGrant        = errors.New("invalid or expired edit session token")
	ErrKeyMismatch         = errors.New("document key does not match current file version")
	ErrUpstreamFetch       = errors.New("editor server request failed")
)
