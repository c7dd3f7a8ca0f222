// Package ai изолирует ядро от конкретного вендора completion-сервиса.
// Оркестратор пишется против интерфейса Client; реализации - OpenAI-совместимые
// API (включая OpenRouter) и Ollama для локальных запусков.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrGenerationFailed - ошибка при генерации текста AI
var ErrGenerationFailed = errors.New("ошибка генерации текста AI")

// Роли сообщений диалога
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message - одна реплика диалога в терминах completion-сервиса
type Message struct {
	Role    string
	Content string
}

// UsageInfo содержит информацию об использовании токенов
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChunkHandler вызывается для каждого фрагмента потокового ответа.
// Возвращенная ошибка прерывает чтение потока.
type ChunkHandler func(chunk string) error

// Client - абстрактный контракт completion-сервиса.
// Complete - одиночный запрос (синтез, перегенерация секции),
// Stream - потоковый (intake и уточнение); Stream возвращает полный
// накопленный текст только если поток дочитан до конца.
type Client interface {
	Complete(ctx context.Context, systemPrompt string, messages []Message) (string, UsageInfo, error)
	Stream(ctx context.Context, systemPrompt string, messages []Message, handler ChunkHandler) (string, UsageInfo, error)
	// WithAPIKey возвращает клиент с тем же транспортом, но персональным
	// ключом пользователя. Для провайдеров без ключей (ollama) - no-op.
	WithAPIKey(apiKey string) Client
}

// Config содержит конфигурацию для клиента completion-сервиса
type Config struct {
	ClientType  string
	APIKey      string
	ModelName   string
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
}

// New создает клиент в зависимости от конфигурации
func New(cfg Config) (Client, error) {
	if cfg.ModelName == "" {
		return nil, errors.New("не указана модель для AI клиента")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	switch strings.ToLower(cfg.ClientType) {
	case "", "openai":
		return newOpenAIClient(cfg)
	case "ollama":
		return newOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("неизвестный тип AI клиента: '%s'", cfg.ClientType)
	}
}
