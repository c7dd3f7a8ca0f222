package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config содержит конфигурацию приложения
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	AI          AIConfig
	CORS        CORSConfig
	JWT         JWTConfig
	Vault       VaultConfig
}

// ServerConfig содержит конфигурацию сервера
type ServerConfig struct {
	Port                int
	BasePath            string
	ReadTimeoutSeconds  int
	WriteTimeoutSeconds int
	IdleTimeoutSeconds  int
	// LegacyStreamFraming включает старый построчный wire-формат стриминга
	// (`0:"..."`) вместо канонического сырого текстового потока
	LegacyStreamFraming bool
}

// DatabaseConfig содержит конфигурацию базы данных
type DatabaseConfig struct {
	Host               string
	Port               int
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxConnections     int
	MaxConnIdleMinutes int
}

// AIConfig содержит конфигурацию для completion-сервиса
type AIConfig struct {
	// ClientType - "openai" (совместимые API, включая OpenRouter) или "ollama"
	ClientType string
	// APIKey - серверный ключ для intake/синтеза; уточнение и перегенерация
	// используют персональные ключи пользователей
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     int
	MaxAttempts int
}

// CORSConfig содержит конфигурацию CORS
type CORSConfig struct {
	AllowedOrigins []string
}

// JWTConfig содержит конфигурацию JWT
type JWTConfig struct {
	Secret         string
	AccessTokenTTL int // Время жизни access токена в минутах
}

// VaultConfig содержит конфигурацию шифрования ключей провайдера
type VaultConfig struct {
	// EncryptionKey - мастер-ключ AES-256: ровно 32 байта либо 64 hex-символа
	EncryptionKey string
}

// Load загружает конфигурацию из переменных окружения
func Load(env string) (Config, error) {
	cfg := Config{
		Environment: env,
		Server: ServerConfig{
			Port:                getEnvInt("SERVER_PORT", 8080),
			BasePath:            getEnvStr("SERVER_BASE_PATH", "/api"),
			ReadTimeoutSeconds:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeoutSeconds: getEnvInt("SERVER_WRITE_TIMEOUT", 300), // Стриминг держит соединение долго
			IdleTimeoutSeconds:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
			LegacyStreamFraming: getEnvBool("LEGACY_STREAM_FRAMING", false),
		},
		Database: DatabaseConfig{
			Host:               getEnvStr("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnvStr("DB_USER", "postgres"),
			Password:           getEnvStr("DB_PASSWORD", "postgres"),
			Name:               getEnvStr("DB_NAME", "tubeplanner"),
			SSLMode:            getEnvStr("DB_SSL_MODE", "disable"),
			MaxConnections:     getEnvInt("DB_MAX_CONNECTIONS", 10),
			MaxConnIdleMinutes: getEnvInt("DB_MAX_IDLE_MINUTES", 5),
		},
		AI: AIConfig{
			ClientType:  getEnvStr("AI_CLIENT_TYPE", "openai"),
			APIKey:      getEnvStr("AI_API_KEY", ""),
			Model:       getEnvStr("AI_MODEL", "gpt-4o"),
			BaseURL:     getEnvStr("AI_BASE_URL", "https://api.openai.com/v1"),
			Timeout:     getEnvInt("AI_TIMEOUT", 120),
			MaxAttempts: getEnvInt("AI_MAX_ATTEMPTS", 3),
		},
		CORS: CORSConfig{
			AllowedOrigins: strings.Split(getEnvStr("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		},
		JWT: JWTConfig{
			Secret:         getEnvStr("JWT_SECRET", "your-256-bit-secret"),
			AccessTokenTTL: getEnvInt("JWT_ACCESS_TOKEN_TTL", 60),
		},
		Vault: VaultConfig{
			EncryptionKey: getEnvStr("ENCRYPTION_KEY", ""),
		},
	}

	// Проверка обязательных настроек
	if cfg.AI.ClientType == "openai" && cfg.AI.APIKey == "" {
		return cfg, fmt.Errorf("AI_API_KEY not set")
	}

	return cfg, nil
}

// getEnvStr возвращает строковое значение из переменной окружения или значение по умолчанию
func getEnvStr(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvBool возвращает булево значение из переменной окружения или значение по умолчанию
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvInt возвращает целочисленное значение из переменной окружения или значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
