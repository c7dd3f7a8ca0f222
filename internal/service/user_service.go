package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// VaultSealer - контракт шифрования/расшифровки пользовательских секретов
type VaultSealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// UserProfileStore - операции хранилища над профилем пользователя
type UserProfileStore interface {
	GetUserContext(ctx context.Context, userID uuid.UUID) (*string, error)
	SetUserContext(ctx context.Context, userID uuid.UUID, userContext string) error
	GetEncryptedAPIKey(ctx context.Context, userID uuid.UUID) (*string, error)
	SetEncryptedAPIKey(ctx context.Context, userID uuid.UUID, encrypted string) error
}

// UserService отвечает за контекст креатора и хранение ключа провайдера
type UserService struct {
	users  UserProfileStore
	vault  VaultSealer
	logger zerolog.Logger
}

func NewUserService(users UserProfileStore, vault VaultSealer, logger zerolog.Logger) *UserService {
	return &UserService{users: users, vault: vault, logger: logger.With().Str("service", "user").Logger()}
}

// GetContext возвращает контекст креатора; nil - контекст не задан
func (s *UserService) GetContext(ctx context.Context, userID uuid.UUID) (*string, error) {
	return s.users.GetUserContext(ctx, userID)
}

// SetContext сохраняет контекст креатора. Пустая строка валидна и означает
// "без персонализации".
func (s *UserService) SetContext(ctx context.Context, userID uuid.UUID, userContext string) error {
	return s.users.SetUserContext(ctx, userID, userContext)
}

// SaveAPIKey шифрует и сохраняет персональный ключ провайдера
func (s *UserService) SaveAPIKey(ctx context.Context, userID uuid.UUID, apiKey string) error {
	encrypted, err := s.vault.Encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("ошибка шифрования ключа: %w", err)
	}
	if err := s.users.SetEncryptedAPIKey(ctx, userID, encrypted); err != nil {
		return fmt.Errorf("ошибка сохранения ключа: %w", err)
	}
	s.logger.Info().Str("user_id", userID.String()).Msg("Provider API key saved")
	return nil
}

// HasAPIKey сообщает, настроен ли у пользователя ключ провайдера
func (s *UserService) HasAPIKey(ctx context.Context, userID uuid.UUID) (bool, error) {
	encrypted, err := s.users.GetEncryptedAPIKey(ctx, userID)
	if err != nil {
		return false, err
	}
	return encrypted != nil && *encrypted != "", nil
}
