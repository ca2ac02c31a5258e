package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// Ошибки шифрования
var (
	ErrEmptyPassphrase    = errors.New("encryption passphrase is empty")
	ErrInvalidCiphertext  = errors.New("invalid ciphertext")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrDecryptionFailed   = errors.New("decryption failed: authentication error")
)

// Параметры деривации ключа
//
// PBKDF2-SHA256 позволяет задавать произвольную passphrase в окружении
// вместо ключа строго в 32 байта.
const (
	keyIterations = 100_000
	keyLength     = 32 // AES-256
)

// соль фиксирована: шифруются API-ключи, а не пароли пользователей,
// и расшифровка должна работать без дополнительного хранимого состояния
var keySalt = []byte("trendbot.credentials.v1")

// DeriveKey выводит 32-байтовый ключ AES-256 из passphrase
func DeriveKey(passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	return pbkdf2.Key([]byte(passphrase), keySalt, keyIterations, keyLength, sha256.New), nil
}

// Encrypt шифрует plaintext с использованием AES-256-GCM
// Возвращает base64-encoded строку (nonce + ciphertext + tag)
func Encrypt(plaintext, passphrase string) (string, error) {
	key, err := DeriveKey(passphrase)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	// GCM добавляет аутентификационный тег автоматически
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt расшифровывает base64-encoded ciphertext
func Decrypt(ciphertextBase64, passphrase string) (string, error) {
	key, err := DeriveKey(passphrase)
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(ciphertextBase64)
	if err != nil {
		return "", ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", ErrCiphertextTooShort
	}

	nonce, data := ciphertext[:nonceSize], ciphertext[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, data, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}
