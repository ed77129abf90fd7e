package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"synxronedit/internal/domain"
)

type pendingEntry struct {
	source    string
	createdAt time.Time
}

// PendingForceSaves — потокобезопасная карта ожидающих принудительных
// сохранений: ключ документа → тег намерения. Пишется из пути запроса
// force-save, читается-и-снимается из пути коллбэка. Компонент внедряется
// явно, а не живёт глобальной переменной: в многоинстансном развертывании
// его можно заменить общим хранилищем с TTL, не трогая вызывающий код.
type PendingForceSaves struct {
	entries sync.Map
	ttl     time.Duration
}

func NewPendingForceSaves(ttl time.Duration) *PendingForceSaves {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &PendingForceSaves{ttl: ttl}
}

// Put записывает тег для ключа. Повторная запись по тому же ключу
// затирает прежний тег: побеждает последний пишущий.
func (p *PendingForceSaves) Put(documentKey, source string) {
	p.entries.Store(documentKey, pendingEntry{source: source, createdAt: time.Now()})
}

// Take снимает и возвращает тег для ключа
func (p *PendingForceSaves) Take(documentKey string) (string, bool) {
	v, ok := p.entries.LoadAndDelete(documentKey)
	if !ok {
		return "", false
	}
	return v.(pendingEntry).source, true
}

// StartEviction запускает уборку записей, чей коллбэк так и не пришёл.
// Останавливается по отмене контекста.
func (p *PendingForceSaves) StartEviction(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.evictExpired()
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (p *PendingForceSaves) evictExpired() {
	cutoff := time.Now().Add(-p.ttl)
	p.entries.Range(func(key, value interface{}) bool {
		if value.(pendingEntry).createdAt.Before(cutoff) {
			p.entries.Delete(key)
			log.Printf("Evicted stale pending force save for key %v", key)
		}
		return true
	})
}

// ForceSaveService отправляет подписанные команды принудительного
// сохранения командному сервису Editor Server и регистрирует намерение
// в карте ожиданий для последующей сверки с коллбэком
type ForceSaveService struct {
	signer     *Signer
	pending    *PendingForceSaves
	commandURL string
	client     *http.Client
}

const commandServicePath = "/coauthoring/CommandService.ashx"

func NewForceSaveService(signer *Signer, pending *PendingForceSaves, editorServerURL string, timeout time.Duration) *ForceSaveService {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &ForceSaveService{
		signer:     signer,
		pending:    pending,
		commandURL: editorServerURL + commandServicePath,
		client:     &http.Client{Timeout: timeout},
	}
}

// Request просит Editor Server принудительно сохранить документ с данным
// ключом. Завершения не ждёт: подтверждение придёт коллбэком со статусом 6,
// вызывающий при необходимости слушает событие DocumentForceSaved.
// Гонка двух запросов по одному ключу с разными тегами разрешается
// последней записью в карту — коллбэк примет тот тег, который застанет.
func (s *ForceSaveService) Request(ctx context.Context, documentKey, source string) (*domain.CommandResult, error) {
	s.pending.Put(documentKey, source)

	token, err := s.signer.Sign(CommandClaims{C: "forcesave", Key: documentKey})
	if err != nil {
		return nil, fmt.Errorf("failed to sign forcesave command: %w", err)
	}

	body, err := json.Marshal(map[string]string{
		"c":     "forcesave",
		"key":   documentKey,
		"token": token,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal forcesave command: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.commandURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: command service returned status %d", domain.ErrUpstreamFetch, resp.StatusCode)
	}

	var result domain.CommandResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode command response: %v", domain.ErrUpstreamFetch, err)
	}

	return &result, nil
}
