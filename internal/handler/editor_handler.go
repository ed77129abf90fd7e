package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"synxronedit/internal/auth"
	"synxronedit/internal/domain"
	"synxronedit/internal/hub"
	"synxronedit/internal/service"
	"synxronedit/internal/storage"
)

// EditorHandler обслуживает протокольные эндпоинты интеграции с Editor
// Server: выдачу конфигурации, скачивание, коллбэки и принудительное
// сохранение
type EditorHandler struct {
	authenticator    auth.Authenticator
	configService    *service.ConfigService
	callbackService  *service.CallbackService
	forceSaveService *service.ForceSaveService
	sessionService   *service.SessionService
	files            service.FileStore
	content          storage.Storage
	events           *hub.Hub
}

func NewEditorHandler(
	authenticator auth.Authenticator,
	configService *service.ConfigService,
	callbackService *service.CallbackService,
	forceSaveService *service.ForceSaveService,
	sessionService *service.SessionService,
	files service.FileStore,
	content storage.Storage,
	events *hub.Hub,
) *EditorHandler {
	return &EditorHandler{
		authenticator:    authenticator,
		configService:    configService,
		callbackService:  callbackService,
		forceSaveService: forceSaveService,
		sessionService:   sessionService,
		files:            files,
		content:          content,
		events:           events,
	}
}

func parseFileUUID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "uuid"))
}

// GetConfig выдает подписанную конфигурацию открытия документа.
// Побочный эффект — одна новая строка edit_sessions.
func (h *EditorHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	user, err := h.authenticator.VerifyRequest(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	fileUUID, err := parseFileUUID(r)
	if err != nil {
		http.Error(w, "Invalid file UUID", http.StatusBadRequest)
		return
	}

	config, err := h.configService.Build(r.Context(), fileUUID, user)
	if errors.Is(err, domain.ErrFileNotFound) || errors.Is(err, domain.ErrPhysicalFileMissing) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Failed to build editor config for %s: %v", fileUUID, err)
		http.Error(w, "Failed to build editor config", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(config)
}

// Download отдает байты файла Editor Server'у по токену гранта
func (h *EditorHandler) Download(w http.ResponseWriter, r *http.Request) {
	fileUUID, err := parseFileUUID(r)
	if err != nil {
		http.Error(w, "Invalid file UUID", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	if _, err := h.sessionService.Validate(r.Context(), fileUUID, token); err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}

	file, err := h.files.GetByUUID(r.Context(), fileUUID)
	if errors.Is(err, domain.ErrFileNotFound) {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to get file", http.StatusInternalServerError)
		return
	}

	reader, err := h.content.Read(r.Context(), file.UUID.String())
	if err != nil {
		http.Error(w, "File content not found", http.StatusNotFound)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", service.MIMETypeForExtension(file.Extension()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))

	if _, err := io.Copy(w, reader); err != nil {
		log.Printf("Failed to stream file %s: %v", fileUUID, err)
	}
}

// Callback принимает уведомления о статусе сохранения. Транспортный
// ответ всегда 200: Editor Server воспринимает не-200 как фатальный сбой
// сессии, любая внутренняя ошибка деградирует до {error:1}.
func (h *EditorHandler) Callback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	fileUUID, err := parseFileUUID(r)
	if err != nil {
		json.NewEncoder(w).Encode(domain.CallbackResponse{Error: 1, Message: "invalid file UUID"})
		return
	}

	var req domain.CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		json.NewEncoder(w).Encode(domain.CallbackResponse{Error: 1, Message: "invalid callback body"})
		return
	}

	token := r.URL.Query().Get("token")
	if err := h.callbackService.Process(r.Context(), fileUUID, token, &req); err != nil {
		log.Printf("Callback processing failed for %s (status %d): %v", fileUUID, req.Status, err)
		json.NewEncoder(w).Encode(domain.CallbackResponse{Error: 1, Message: err.Error()})
		return
	}

	json.NewEncoder(w).Encode(domain.CallbackResponse{Error: 0})
}

// ForceSave транслирует явную команду сохранения командному сервису
// Editor Server и возвращает его ответ как есть
func (h *EditorHandler) ForceSave(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authenticator.VerifyRequest(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if _, err := parseFileUUID(r); err != nil {
		http.Error(w, "Invalid file UUID", http.StatusBadRequest)
		return
	}

	var req domain.ForceSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Key == "" {
		http.Error(w, "Document key is required", http.StatusBadRequest)
		return
	}

	result, err := h.forceSaveService.Request(r.Context(), req.Key, req.Source)
	if err != nil {
		// Клиент сам решает, повторять или показывать пользователю
		log.Printf("Force save request failed for key %s: %v", req.Key, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Events подписывает клиента на события файла по websocket
func (h *EditorHandler) Events(w http.ResponseWriter, r *http.Request) {
	fileUUID, err := parseFileUUID(r)
	if err != nil {
		http.Error(w, "Invalid file UUID", http.StatusBadRequest)
		return
	}

	h.events.ServeFile(w, r, fileUUID.String())
}
