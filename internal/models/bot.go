package models

import (
	"errors"
	"fmt"
	"time"
)

// MarketKind - тип рынка, на котором торгует бот
type MarketKind string

const (
	MarketSpot    MarketKind = "spot"
	MarketFutures MarketKind = "futures"
)

// Environment - окружение биржи (testnet для тестовых ключей, mainnet для боевых)
type Environment string

const (
	EnvTestnet Environment = "testnet"
	EnvMainnet Environment = "mainnet"
)

// Ограничения биржи, общие для всех ботов
const (
	// MinOrderNotional - минимальная сумма ордера в котируемой валюте
	MinOrderNotional = 10.0

	// MinLeverage / MaxLeverage - допустимый диапазон плеча для фьючерсов
	MinLeverage = 1
	MaxLeverage = 125
)

// Ошибки валидации конфигурации бота
var (
	ErrEmptyName        = errors.New("bot name is required")
	ErrEmptyAsset       = errors.New("base and quote assets are required")
	ErrInvalidPeriods   = errors.New("fast period must be less than slow period")
	ErrInvalidNotional  = fmt.Errorf("order notional must be at least %.0f quote units", MinOrderNotional)
	ErrInvalidLeverage  = fmt.Errorf("leverage must be between %d and %d", MinLeverage, MaxLeverage)
	ErrInvalidStopLoss  = errors.New("stop loss percent must be positive")
	ErrInvalidTakeProf  = errors.New("take profit percent must be positive")
	ErrInvalidLossLimit = errors.New("loss limit percents cannot be negative")
	ErrInvalidCooldown  = errors.New("cooldown ticks cannot be negative")
	ErrInvalidQtyStep   = errors.New("quantity step must be positive")
)

// BotConfig представляет конфигурацию одного торгового бота
//
// Запись создаётся и редактируется внешним CRUD-слоем в любой момент.
// Цикл бота перечитывает её в начале каждого тика, поэтому изменения
// применяются без перезапуска процесса (hot reload).
type BotConfig struct {
	ID      string      `json:"id" db:"id"`
	Name    string      `json:"name" db:"name"`
	Enabled bool        `json:"enabled" db:"enabled"`
	Market  MarketKind  `json:"market" db:"market"`           // spot, futures
	Env     Environment `json:"environment" db:"environment"` // testnet, mainnet
	DryRun  bool        `json:"dry_run" db:"dry_run"`         // true = виртуальный леджер вместо биржи

	// Инструмент
	BaseAsset  string        `json:"base_asset" db:"base_asset"`   // BTC
	QuoteAsset string        `json:"quote_asset" db:"quote_asset"` // USDT
	Interval   string        `json:"interval" db:"interval"`       // 1m, 5m, 1h...
	PollPeriod time.Duration `json:"poll_period" db:"poll_period_ms"`

	// Стратегия: пересечение скользящих средних
	FastPeriod int `json:"fast_period" db:"fast_period"`
	SlowPeriod int `json:"slow_period" db:"slow_period"`

	// Риск-параметры
	OrderNotional   float64 `json:"order_notional" db:"order_notional"`   // сумма ордера в котируемой валюте
	QtyStep         float64 `json:"qty_step" db:"qty_step"`               // шаг округления количества (lot size)
	Leverage        int     `json:"leverage" db:"leverage"`               // только для фьючерсов
	StopLossPct     float64 `json:"stop_loss_pct" db:"stop_loss_pct"`     // % убытка для принудительного закрытия
	TakeProfitPct   float64 `json:"take_profit_pct" db:"take_profit_pct"` // % прибыли для фиксации
	MaxDailyLossPct float64 `json:"max_daily_loss_pct" db:"max_daily_loss_pct"`
	MaxTotalLossPct float64 `json:"max_total_loss_pct" db:"max_total_loss_pct"`

	// Политика позиций
	PreventDuplicates bool `json:"prevent_duplicates" db:"prevent_duplicates"`
	CooldownTicks     int  `json:"cooldown_ticks" db:"cooldown_ticks"`

	// Виртуальный леджер (используется только в dry-run режиме)
	VirtualQuoteInitial float64 `json:"virtual_quote_initial" db:"virtual_quote_initial"`
	VirtualQuote        float64 `json:"virtual_quote" db:"virtual_quote"`
	VirtualBase         float64 `json:"virtual_base" db:"virtual_base"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Symbol возвращает биржевой символ инструмента (BTC + USDT -> BTCUSDT)
func (c *BotConfig) Symbol() string {
	return c.BaseAsset + c.QuoteAsset
}

// Validate проверяет инварианты конфигурации
func (c *BotConfig) Validate() error {
	if c.Name == "" {
		return ErrEmptyName
	}
	if c.BaseAsset == "" || c.QuoteAsset == "" {
		return ErrEmptyAsset
	}
	if c.Market != MarketSpot && c.Market != MarketFutures {
		return fmt.Errorf("invalid market kind: %q", c.Market)
	}
	if c.Env != EnvTestnet && c.Env != EnvMainnet {
		return fmt.Errorf("invalid environment: %q", c.Env)
	}
	if c.FastPeriod <= 0 || c.SlowPeriod <= 0 || c.FastPeriod >= c.SlowPeriod {
		return ErrInvalidPeriods
	}
	if c.OrderNotional < MinOrderNotional {
		return ErrInvalidNotional
	}
	if c.QtyStep <= 0 {
		return ErrInvalidQtyStep
	}
	if c.Market == MarketFutures && (c.Leverage < MinLeverage || c.Leverage > MaxLeverage) {
		return ErrInvalidLeverage
	}
	if c.StopLossPct <= 0 {
		return ErrInvalidStopLoss
	}
	if c.TakeProfitPct <= 0 {
		return ErrInvalidTakeProf
	}
	if c.MaxDailyLossPct < 0 || c.MaxTotalLossPct < 0 {
		return ErrInvalidLossLimit
	}
	if c.CooldownTicks < 0 {
		return ErrInvalidCooldown
	}
	return nil
}
