package domain

import "time"

// Статусы, которые Editor Server присылает в коллбэке сохранения
const (
	CallbackStatusEditing        = 1 // документ редактируется
	CallbackStatusSave           = 2 // сессия закрыта, есть изменения
	CallbackStatusSaveError      = 3 // ошибка сохранения на стороне редактора
	CallbackStatusClosedNoSave   = 4 // сессия закрыта без изменений
	CallbackStatusForceSave      = 6 // завершён принудительный save
	CallbackStatusForceSaveError = 7 // ошибка принудительного save
)

// Источники принудительного сохранения. Тег определяет, ротируется ли
// ключ документа после записи: auto-save сохраняет байты, но оставляет
// ключ прежним, чтобы редактор не завёл новую сессию совместной работы.
const (
	ForceSaveSourceAuto  = "auto-save"
	ForceSaveSourceClose = "save-and-close"
)

// Имена событий, рассылаемых подписчикам файла
const (
	EventCallbackReceived   = "CallbackReceived"
	EventDocumentSaved      = "DocumentSaved"
	EventDocumentForceSaved = "DocumentForceSaved"
)

// CallbackRequest — тело POST /callback/{uuid} от Editor Server
type CallbackRequest struct {
	Key          string   `json:"key"`
	Status       int      `json:"status"`
	URL          string   `json:"url,omitempty"`
	Users        []string `json:"users,omitempty"`
	Actions      []Action `json:"actions,omitempty"`
	LastSave     string   `json:"lastSave,omitempty"`
	FormsDataURL string   `json:"formsDataUrl,omitempty"`
}

// Action — элемент списка actions коллбэка (подключение/отключение пользователя)
type Action struct {
	Type   int    `json:"type"`
	UserID string `json:"userid"`
}

// CallbackResponse — ответ на коллбэк. Транспортный статус всегда 200,
// Editor Server смотрит только на поле error.
type CallbackResponse struct {
	Error   int    `json:"error"`
	Message string `json:"message,omitempty"`
}

// ForceSaveRequest — тело POST /forcesave/{uuid} от клиента
type ForceSaveRequest struct {
	Key    string `json:"key"`
	Source string `json:"source,omitempty"`
}

// CommandResult — ответ командного сервиса Editor Server, отдаётся клиенту как есть
type CommandResult struct {
	Error   int    `json:"error"`
	Key     string `json:"key,omitempty"`
	Message string `json:"message,omitempty"`
}

// EditorUser — идентичность пользователя внутри конфигурации редактора
type EditorUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Permissions — статичная политика прав для открытой сессии
type Permissions struct {
	Edit     bool `json:"edit"`
	Download bool `json:"download"`
	Print    bool `json:"print"`
}

// Document — блок document конфигурации редактора
type Document struct {
	FileType    string      `json:"fileType"`
	Key         string      `json:"key"`
	Title       string      `json:"title"`
	URL         string      `json:"url"`
	Permissions Permissions `json:"permissions"`
}

// Logo — видимость логотипа в интерфейсе редактора
type Logo struct {
	Visible bool `json:"visible"`
}

// Customization — настройки интерфейса редактора
type Customization struct {
	Logo Logo `json:"logo"`
}

// EditorSettings — блок editorConfig конфигурации
type EditorSettings struct {
	Mode          string        `json:"mode"`
	CallbackURL   string        `json:"callbackUrl"`
	Lang          string        `json:"lang"`
	Region        string        `json:"region"`
	User          EditorUser    `json:"user"`
	Customization Customization `json:"customization"`
}

// EditorConfig — полная конфигурация, которую клиент передаёт Editor Server.
// Token заполняется подписью остальных полей.
type EditorConfig struct {
	Document     Document       `json:"document"`
	DocumentType string         `json:"documentType"`
	EditorConfig EditorSettings `json:"editorConfig"`
	Token        string         `json:"token,omitempty"`
}

// SignedConfig — ответ GET /config/{uuid}
type SignedConfig struct {
	Config          EditorConfig `json:"config"`
	EditorServerURL string       `json:"editorServerUrl"`
	UserID          string       `json:"userId"`
}

// CallbackEvent — транзитное сообщение для подписчиков файла, не персистится
type CallbackEvent struct {
	FileUUID string     `json:"fileUuid"`
	Status   int        `json:"status"`
	Message  string     `json:"message,omitempty"`
	Success  *bool      `json:"success,omitempty"`
	Source   string     `json:"source,omitempty"`
	SavedAt  *time.Time `json:"savedAt,omitempty"`
}
