// Package bot реализует торговое ядро: цикл бота, риск-движок,
// исполнение ордеров и планировщик циклов.
package bot

import (
	"context"

	"trendbot/internal/exchange"
	"trendbot/internal/models"
)

// Store - контракт хранилища, который потребляют цикл и планировщик
type Store interface {
	ListBots() ([]*models.BotConfig, error)
	GetBot(id string) (*models.BotConfig, error)
	UpdateLedger(id string, quote, base float64) error
	UpsertSnapshot(snap *models.BotStatusSnapshot) error
}

// Exchange - контракт клиента биржи, который потребляет цикл
type Exchange interface {
	GetCandles(ctx context.Context, interval string, limit int) ([]exchange.Candle, error)
	GetAccount(ctx context.Context) (*exchange.Account, error)
	GetPositions(ctx context.Context) ([]exchange.Position, error)
	SetLeverage(ctx context.Context, leverage int) error
	PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error)
}
