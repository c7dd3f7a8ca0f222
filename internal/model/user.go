package model

import (
	"time"

	"github.com/google/uuid"
)

// User представляет модель пользователя в системе
type User struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Username string    `json:"username" db:"username"`
	Email    string    `json:"email" db:"email"`
	Password string    `json:"-" db:"password_hash"` // Не возвращаем пароль в JSON
	// UserContext - свободный текст о креаторе, подмешивается в промпты
	UserContext *string `json:"user_context" db:"user_context"`
	// EncryptedAPIKey - ключ провайдера, зашифрованный Credential Vault
	EncryptedAPIKey *string   `json:"-" db:"encrypted_api_key"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// CreateUserRequest содержит данные для создания пользователя
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest содержит данные для входа пользователя
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse содержит токен аутентификации и данные пользователя
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// IntakeTurnRequest - запрос на очередную реплику intake-диалога
type IntakeTurnRequest struct {
	Messages []Message  `json:"messages"`
	PlanID   *uuid.UUID `json:"plan_id,omitempty"`
}

// RefineTurnRequest - запрос на реплику диалога уточнения секций
type RefineTurnRequest struct {
	PlanID   uuid.UUID `json:"plan_id"`
	Sections []string  `json:"sections"`
	Messages []Message `json:"messages"`
}

// RegenerateRequest - запрос на перегенерацию одной секции
type RegenerateRequest struct {
	Section string `json:"section"`
}

// UpdateContextRequest - запрос на сохранение контекста креатора
type UpdateContextRequest struct {
	UserContext string `json:"user_context"`
}

// SaveAPIKeyRequest - запрос на сохранение ключа провайдера
type SaveAPIKeyRequest struct {
	APIKey string `json:"api_key"`
}
