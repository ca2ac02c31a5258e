package models

import "time"

// Status - статус цикла бота, записываемый в снапшот каждый тик
type Status string

const (
	StatusDisabled Status = "DISABLED" // enabled=false в конфигурации
	StatusRunning  Status = "RUNNING"  // нормальная работа
	StatusBlocked  Status = "BLOCKED"  // сработал ограничитель убытков, нужно вмешательство оператора
	StatusError    Status = "ERROR"    // тик завершился ошибкой, следующий тик продолжит работу
)

// PositionSide - направление открытой позиции
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// MarketSample - срез рыночных данных, по которым считался сигнал
type MarketSample struct {
	Price   float64 `json:"price"`             // цена закрытия последней свечи
	FastMA  float64 `json:"fast_ma,omitempty"` // нулевые при недостатке данных
	SlowMA  float64 `json:"slow_ma,omitempty"`
	Signal  Signal  `json:"signal"`
	Candles int     `json:"candles"` // сколько свечей было получено
}

// PositionView - снапшот открытой позиции для наблюдателей
type PositionView struct {
	Side          PositionSide `json:"side"`
	Quantity      float64      `json:"quantity"`
	EntryPrice    float64      `json:"entry_price"`
	MarkPrice     float64      `json:"mark_price"`
	UnrealizedPnl float64      `json:"unrealized_pnl"`
	Leverage      int          `json:"leverage,omitempty"`
}

// AccountView - снапшот аккаунта на момент тика
type AccountView struct {
	QuoteBalance float64       `json:"quote_balance"`
	Equity       float64       `json:"equity"` // капитал в котируемой валюте с учётом позиции
	Position     *PositionView `json:"position,omitempty"`
}

// BotStatusSnapshot - статус бота, перезаписываемый в хранилище каждый тик
//
// Таблица хранит ровно одну строку на бота (atomic upsert по bot_id),
// внешние наблюдатели читают её для отображения состояния.
type BotStatusSnapshot struct {
	BotID     string        `json:"bot_id" db:"bot_id"`
	Status    Status        `json:"status" db:"status"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
	Config    *BotConfig    `json:"config,omitempty"`
	Sample    *MarketSample `json:"sample,omitempty"`
	Account   *AccountView  `json:"account,omitempty"`
	Decision  *Decision     `json:"decision,omitempty"`
	Error     string        `json:"error,omitempty" db:"error_message"`
}
