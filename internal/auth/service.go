// Package auth отвечает за регистрацию, вход и выпуск JWT токенов.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/OverseedAI/tubeplanner/internal/model"
	"github.com/OverseedAI/tubeplanner/internal/repository"
)

var (
	ErrUserNotFound      = errors.New("пользователь не найден")
	ErrInvalidPassword   = errors.New("неверный пароль")
	ErrUserAlreadyExists = errors.New("пользователь уже существует")
)

// UserStore - минимальный контракт хранилища пользователей, нужный auth-сервису
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

type Service struct {
	store     UserStore
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewService(store UserStore, jwtSecret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

func (s *Service) Register(ctx context.Context, username, email, password string) error {
	// Проверяем занятость username и email
	_, err := s.store.GetByUsername(ctx, username)
	if err == nil {
		return ErrUserAlreadyExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("ошибка при проверке существования пользователя: %w", err)
	}

	_, err = s.store.GetByEmail(ctx, email)
	if err == nil {
		return ErrUserAlreadyExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("ошибка при проверке email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("ошибка при хешировании пароля: %w", err)
	}

	user := &model.User{
		Username: username,
		Email:    email,
		Password: string(hashedPassword),
	}

	if err := s.store.Create(ctx, user); err != nil {
		return fmt.Errorf("ошибка при создании пользователя: %w", err)
	}

	return nil
}

// Login проверяет учетные данные и возвращает JWT токен с данными пользователя
func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	user, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  user.ID.String(),
		"username": user.Username,
		"email":    user.Email,
		"exp":      expiresAt.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("ошибка при создании токена: %w", err)
	}

	return &model.TokenResponse{
		Token:     tokenString,
		ExpiresAt: expiresAt,
		User:      *user,
	}, nil
}
