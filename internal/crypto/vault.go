package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Параметры шифрования. Формат шифртекста: nonce:authTag:body (все части hex),
// поэтому расшифровка самоописываемая. Ротация мастер-ключа не поддерживается -
// смена ключа делает все сохраненные секреты нечитаемыми.
const (
	keyLength   = 32 // AES-256
	nonceLength = 16
	tagLength   = 16
)

var (
	// ErrConfiguration - мастер-ключ отсутствует или имеет неверную длину.
	// Исправляется оператором, не пользователем.
	ErrConfiguration = errors.New("некорректная конфигурация ключа шифрования")
	// ErrIntegrity - шифртекст поврежден, подделан или зашифрован другим ключом
	ErrIntegrity = errors.New("шифртекст не прошел проверку целостности")
)

// Vault шифрует и расшифровывает персональные секреты пользователей
// (ключи провайдера) с аутентифицированным шифрованием AES-256-GCM
type Vault struct {
	key []byte
}

// NewVault создает Vault из мастер-ключа: ровно 32 байта либо 64 hex-символа
func NewVault(masterKey string) (*Vault, error) {
	if masterKey == "" {
		return nil, fmt.Errorf("%w: ENCRYPTION_KEY не задан", ErrConfiguration)
	}

	// 64 hex-символа декодируем, иначе используем байты строки как есть
	if len(masterKey) == keyLength*2 {
		key, err := hex.DecodeString(masterKey)
		if err == nil {
			return &Vault{key: key}, nil
		}
		// 64 символа, но не hex - трактуем как ошибку конфигурации
		return nil, fmt.Errorf("%w: ключ длиной 64 символа должен быть hex", ErrConfiguration)
	}

	if len(masterKey) != keyLength {
		return nil, fmt.Errorf("%w: ожидается 32 байта или 64 hex-символа, получено %d байт", ErrConfiguration, len(masterKey))
	}

	return &Vault{key: []byte(masterKey)}, nil
}

// Encrypt шифрует произвольную строку и возвращает hex-триплет nonce:authTag:body.
// Каждый вызов использует свежий случайный nonce.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	gcm, err := v.newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	// Seal дописывает тег аутентификации в конец, отделяем его для формата
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	body := sealed[:len(sealed)-tagLength]
	tag := sealed[len(sealed)-tagLength:]

	return fmt.Sprintf("%s:%s:%s",
		hex.EncodeToString(nonce),
		hex.EncodeToString(tag),
		hex.EncodeToString(body),
	), nil
}

// Decrypt расшифровывает hex-триплет, созданный Encrypt.
// Любое повреждение формата или тега дает ErrIntegrity, никогда не
// возвращает неверный открытый текст молча.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	gcm, err := v.newGCM()
	if err != nil {
		return "", err
	}

	parts := strings.Split(ciphertext, ":")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: ожидается формат nonce:tag:body", ErrIntegrity)
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceLength {
		return "", fmt.Errorf("%w: некорректный nonce", ErrIntegrity)
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagLength {
		return "", fmt.Errorf("%w: некорректный тег аутентификации", ErrIntegrity)
	}
	body, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", fmt.Errorf("%w: некорректное тело шифртекста", ErrIntegrity)
	}

	sealed := append(body, tag...)
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrIntegrity, err)
	}

	return string(plaintext), nil
}

// newGCM собирает AEAD с нестандартной длиной nonce (16 байт, как в формате)
func (v *Vault) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, nonceLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return gcm, nil
}

// GenerateKey возвращает новый случайный мастер-ключ в hex (утилита для оператора)
func GenerateKey() (string, error) {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return hex.EncodeToString(key), nil
}
