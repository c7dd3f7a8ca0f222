package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/OverseedAI/tubeplanner/internal/model"
)

// ErrUserNotFound возвращается, когда пользователь не существует
var ErrUserNotFound = errors.New("пользователь не найден")

// UserRepository предоставляет доступ к пользователям.
// Записи идут через pgx, простые чтения профиля - через sqlx.
type UserRepository struct {
	pool *pgxpool.Pool
	db   *sqlx.DB
}

// NewUserRepository создает новый экземпляр репозитория пользователей
func NewUserRepository(pool *pgxpool.Pool, db *sqlx.DB) *UserRepository {
	return &UserRepository{pool: pool, db: db}
}

// Create создает нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Username, user.Email, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка при создании пользователя: %w", err)
	}
	return nil
}

// GetByEmail возвращает пользователя по email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user := &model.User{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, user_context, encrypted_api_key, created_at, updated_at
		FROM users WHERE email = $1`, email).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.UserContext,
		&user.EncryptedAPIKey,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске пользователя по email: %w", err)
	}
	return user, nil
}

// GetByUsername возвращает пользователя по имени
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user := &model.User{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, user_context, encrypted_api_key, created_at, updated_at
		FROM users WHERE username = $1`, username).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.Password,
		&user.UserContext,
		&user.EncryptedAPIKey,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка при поиске пользователя по username: %w", err)
	}
	return user, nil
}

// GetUserContext возвращает контекст креатора; nil означает "не задан"
func (r *UserRepository) GetUserContext(ctx context.Context, userID uuid.UUID) (*string, error) {
	var userContext sql.NullString
	err := r.db.GetContext(ctx, &userContext, `SELECT user_context FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка при чтении контекста креатора: %w", err)
	}
	if !userContext.Valid {
		return nil, nil
	}
	return &userContext.String, nil
}

// SetUserContext сохраняет контекст креатора. Пустая строка валидна
// и означает "без персонализации".
func (r *UserRepository) SetUserContext(ctx context.Context, userID uuid.UUID, userContext string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET user_context = $2, updated_at = $3 WHERE id = $1`,
		userID, userContext, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка при сохранении контекста креатора: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetEncryptedAPIKey возвращает зашифрованный ключ провайдера; nil если не настроен
func (r *UserRepository) GetEncryptedAPIKey(ctx context.Context, userID uuid.UUID) (*string, error) {
	var encrypted sql.NullString
	err := r.db.GetContext(ctx, &encrypted, `SELECT encrypted_api_key FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("ошибка при чтении ключа провайдера: %w", err)
	}
	if !encrypted.Valid {
		return nil, nil
	}
	return &encrypted.String, nil
}

// SetEncryptedAPIKey сохраняет зашифрованный ключ провайдера
func (r *UserRepository) SetEncryptedAPIKey(ctx context.Context, userID uuid.UUID, encrypted string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET encrypted_api_key = $2, updated_at = $3 WHERE id = $1`,
		userID, encrypted, time.Now())
	if err != nil {
		return fmt.Errorf("ошибка при сохранении ключа провайдера: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
