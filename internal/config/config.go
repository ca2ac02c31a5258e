package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config содержит всю конфигурацию процесса
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
	Exchange  ExchangeConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig - настройки HTTP сервера (health + metrics)
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SchedulerConfig - настройки реконсиляции ботов
type SchedulerConfig struct {
	// ReconcileInterval - период сверки запущенных циклов со списком ботов в БД
	ReconcileInterval time.Duration

	// MinTickInterval - нижняя граница паузы между тиками любого бота
	MinTickInterval time.Duration

	// CandleLimit - сколько последних свечей запрашивается на каждом тике
	CandleLimit int

	// BotsFile - опциональный YAML с начальными ботами (пусто = не используется)
	BotsFile string
}

// ExchangeConfig - настройки клиента биржи
type ExchangeConfig struct {
	// RequestTimeout - таймаут одного сетевого вызова внутри тика
	RequestTimeout time.Duration

	// RateLimitPerSec / RateLimitBurst - weight-бюджет запросов к API
	RateLimitPerSec float64
	RateLimitBurst  int
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// CredentialsPassphrase - passphrase для расшифровки API-ключей с префиксом "enc:"
	// Пустое значение допустимо если ключи заданы открытым текстом.
	CredentialsPassphrase string
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "trendbot"),
			User:     getEnv("DB_USER", "trendbot"),
			Password: getEnv("DB_PASSWORD", ""),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Scheduler: SchedulerConfig{
			ReconcileInterval: getEnvAsDuration("RECONCILE_INTERVAL", 10*time.Second),
			MinTickInterval:   getEnvAsDuration("MIN_TICK_INTERVAL", 500*time.Millisecond),
			CandleLimit:       getEnvAsInt("CANDLE_LIMIT", 200),
			BotsFile:          getEnv("BOTS_FILE", ""),
		},
		Exchange: ExchangeConfig{
			RequestTimeout:  getEnvAsDuration("EXCHANGE_REQUEST_TIMEOUT", 10*time.Second),
			RateLimitPerSec: getEnvAsFloat("EXCHANGE_RATE_LIMIT", 20),
			RateLimitBurst:  getEnvAsInt("EXCHANGE_RATE_BURST", 40),
		},
		Security: SecurityConfig{
			CredentialsPassphrase: getEnv("CREDENTIALS_ENCRYPTION_KEY", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Scheduler.ReconcileInterval < time.Second {
		return fmt.Errorf("RECONCILE_INTERVAL must be at least 1s, got %v", c.Scheduler.ReconcileInterval)
	}

	if c.Scheduler.MinTickInterval < 100*time.Millisecond {
		return fmt.Errorf("MIN_TICK_INTERVAL must be at least 100ms, got %v", c.Scheduler.MinTickInterval)
	}

	if c.Scheduler.CandleLimit < 2 {
		return fmt.Errorf("CANDLE_LIMIT must be at least 2, got %d", c.Scheduler.CandleLimit)
	}

	if c.Exchange.RequestTimeout <= 0 {
		return fmt.Errorf("EXCHANGE_REQUEST_TIMEOUT must be positive, got %v", c.Exchange.RequestTimeout)
	}

	if c.Exchange.RateLimitPerSec <= 0 {
		return fmt.Errorf("EXCHANGE_RATE_LIMIT must be positive, got %v", c.Exchange.RateLimitPerSec)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
