package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"trendbot/internal/models"
	"trendbot/pkg/crypto"
)

// Ошибки резолвинга учетных данных
var (
	ErrNoCredentials = errors.New("no API credentials for environment")
)

// encPrefix помечает зашифрованные значения в переменных окружения
const encPrefix = "enc:"

// Credentials - пара API-ключей одного окружения биржи
type Credentials struct {
	APIKey    string
	APISecret string
}

// Resolver отдает учетные данные по окружению бота
//
// Ключи читаются из переменных окружения TESTNET_API_KEY / TESTNET_API_SECRET
// и MAINNET_API_KEY / MAINNET_API_SECRET. Значение с префиксом "enc:"
// расшифровывается passphrase'ом из конфигурации.
type Resolver struct {
	passphrase string
}

// NewResolver создает резолвер учетных данных
func NewResolver(passphrase string) *Resolver {
	return &Resolver{passphrase: passphrase}
}

// Resolve возвращает учетные данные для окружения
//
// Возвращает ErrNoCredentials, если хотя бы одна из двух переменных
// окружения не задана.
func (r *Resolver) Resolve(env models.Environment) (*Credentials, error) {
	prefix := strings.ToUpper(string(env))

	key, err := r.readVar(prefix + "_API_KEY")
	if err != nil {
		return nil, err
	}

	secret, err := r.readVar(prefix + "_API_SECRET")
	if err != nil {
		return nil, err
	}

	return &Credentials{APIKey: key, APISecret: secret}, nil
}

// ResolveAny проверяет, что разрешим хотя бы один набор ключей
//
// Используется при старте процесса: если ни testnet, ни mainnet ключи
// не заданы, запускать планировщик бессмысленно.
func (r *Resolver) ResolveAny() error {
	envs := []models.Environment{models.EnvTestnet, models.EnvMainnet}
	for _, env := range envs {
		if _, err := r.Resolve(env); err == nil {
			return nil
		}
	}
	return ErrNoCredentials
}

// readVar читает переменную окружения и расшифровывает её при необходимости
func (r *Resolver) readVar(name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("%w: %s is not set", ErrNoCredentials, name)
	}

	if !strings.HasPrefix(value, encPrefix) {
		return value, nil
	}

	if r.passphrase == "" {
		return "", fmt.Errorf("%s is encrypted but CREDENTIALS_ENCRYPTION_KEY is not set", name)
	}

	plain, err := crypto.Decrypt(strings.TrimPrefix(value, encPrefix), r.passphrase)
	if err != nil {
		return "", fmt.Errorf("decrypt %s: %w", name, err)
	}

	return plain, nil
}
