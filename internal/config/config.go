package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Editor   EditorConfig   `mapstructure:"Editor"`
	Storage  StorageConfig  `mapstructure:"Storage"`
}

type ServerConfig struct {
	Port    string `mapstructure:"Port"`
	BaseURL string `mapstructure:"BaseURL"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

// EditorConfig — параметры интеграции с Editor Server.
// Secret и ServerURL обязательны: без них подписывать конфигурации и
// команды невозможно, поэтому их отсутствие — фатальная ошибка запуска.
type EditorConfig struct {
	ServerURL      string        `mapstructure:"ServerURL"`
	Secret         string        `mapstructure:"Secret"`
	FetchTimeout   time.Duration `mapstructure:"FetchTimeout"`
	CommandTimeout time.Duration `mapstructure:"CommandTimeout"`
	PendingTTL     time.Duration `mapstructure:"PendingTTL"`
	SessionTTL     time.Duration `mapstructure:"SessionTTL"`
}

type StorageConfig struct {
	Backend string `mapstructure:"Backend"` // disk | s3
	DiskDir string `mapstructure:"DiskDir"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	// Устанавливаем файл конфигурации
	v.SetConfigFile(path)

	// Привязываем переменные окружения
	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Server.BaseURL", "SERVER_BASE_URL")
	v.BindEnv("Editor.ServerURL", "EDITOR_SERVER_URL")
	v.BindEnv("Editor.Secret", "EDITOR_JWT_SECRET")
	v.BindEnv("Storage.Backend", "STORAGE_BACKEND")
	v.BindEnv("Storage.DiskDir", "STORAGE_DISK_DIR")

	// Читаем конфигурацию из файла
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Проверяем переменные окружения напрямую если конфигурация неполная
	if cfg.Database.Host == "" {
		cfg.Database.Host = v.GetString("DATABASE_HOST")
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = v.GetString("DATABASE_PORT")
	}
	if cfg.Database.User == "" {
		cfg.Database.User = v.GetString("DATABASE_USER")
	}
	if cfg.Database.Password == "" {
		cfg.Database.Password = v.GetString("DATABASE_PASSWORD")
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = v.GetString("DATABASE_NAME")
	}
	if cfg.Editor.ServerURL == "" {
		cfg.Editor.ServerURL = v.GetString("EDITOR_SERVER_URL")
	}
	if cfg.Editor.Secret == "" {
		cfg.Editor.Secret = v.GetString("EDITOR_JWT_SECRET")
	}

	// Проверяем, что все необходимые поля заполнены
	if cfg.Database.Host == "" ||
		cfg.Database.Port == "" ||
		cfg.Database.User == "" ||
		cfg.Database.Password == "" ||
		cfg.Database.Name == "" {
		return nil, fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Name)
	}

	// Интеграция с Editor Server без секрета и адреса неработоспособна,
	// падаем на старте, а не на первом запросе
	if cfg.Editor.ServerURL == "" {
		return nil, fmt.Errorf("editor configuration is incomplete: ServerURL is required")
	}
	if cfg.Editor.Secret == "" {
		return nil, fmt.Errorf("editor configuration is incomplete: Secret is required")
	}

	// Установка значений по умолчанию
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "2526"
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Server.Port)
	}
	if cfg.Editor.FetchTimeout == 0 {
		cfg.Editor.FetchTimeout = 30 * time.Second
	}
	if cfg.Editor.CommandTimeout == 0 {
		cfg.Editor.CommandTimeout = 10 * time.Second
	}
	if cfg.Editor.PendingTTL == 0 {
		cfg.Editor.PendingTTL = time.Hour
	}
	if cfg.Editor.SessionTTL == 0 {
		cfg.Editor.SessionTTL = 24 * time.Hour
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "disk"
	}
	if cfg.Storage.DiskDir == "" {
		cfg.Storage.DiskDir = "/var/lib/synxronedit/files"
	}

	return &cfg, nil
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}
