package exchange

import (
	"fmt"
	"time"
)

// Candle - одна свеча OHLCV
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Account - срез баланса аккаунта в разрезе пары бота
type Account struct {
	// QuoteBalance - свободный баланс котируемого актива
	QuoteBalance float64

	// BaseBalance - свободный баланс базового актива (спот)
	BaseBalance float64
}

// Position - открытая позиция по символу
type Position struct {
	Symbol     string
	Side       string // long | short
	Quantity   float64
	EntryPrice float64
	MarkPrice  float64
}

// OrderSide - направление ордера
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderRequest - запрос на размещение рыночного ордера
type OrderRequest struct {
	Side     OrderSide
	Quantity float64

	// ReduceOnly - ордер может только сокращать позицию (фьючерсы)
	ReduceOnly bool
}

// OrderResult - ответ биржи на размещение ордера
type OrderResult struct {
	OrderID     int64
	Status      string
	ExecutedQty float64
	AvgPrice    float64
}

// APIError - ошибка уровня API биржи (HTTP-статус вне 2xx)
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange API error: status=%d code=%d msg=%q", e.Status, e.Code, e.Message)
}
