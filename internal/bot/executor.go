package bot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"trendbot/internal/exchange"
	"trendbot/internal/models"
)

// Ошибки исполнения
var (
	ErrInsufficientBalance = errors.New("insufficient virtual balance")
)

// ExecutionResult - результат исполнения решения
type ExecutionResult struct {
	// OrderID - идентификатор ордера биржи, 0 в dry-run режиме
	OrderID     int64
	ExecutedQty float64
	AvgPrice    float64

	// RealizedPnl - реализованный PnL закрытия в котируемой валюте,
	// 0 для входов и закрытий без известной цены входа
	RealizedPnl float64
}

// Gateway исполняет торговые решения в одном из двух режимов
//
// В dry-run ордер симулируется против виртуального леджера бота,
// в live размещается рыночный ордер на бирже. Решение, какой режим
// использовать, принимает конфигурация бота, а не вызывающий код.
type Gateway struct {
	store  Store
	client Exchange
	logger *zap.Logger
}

// NewGateway создает гейтвей исполнения
func NewGateway(store Store, client Exchange, logger *zap.Logger) *Gateway {
	return &Gateway{store: store, client: client, logger: logger}
}

// Execute исполняет решение тика
//
// Вызывается только для решений с d.IsOrder() == true.
func (g *Gateway) Execute(ctx context.Context, cfg *models.BotConfig, d models.Decision, pos *models.PositionView) (*ExecutionResult, error) {
	if cfg.DryRun {
		return g.executeDryRun(cfg, d, pos)
	}
	return g.executeLive(ctx, cfg, d, pos)
}

// ==================== Dry-run ====================

// executeDryRun симулирует рыночный ордер против виртуального леджера
//
// Заполнение считается мгновенным по цене решения, без комиссий и
// проскальзывания. Новые балансы записываются в хранилище; если запись
// не удалась, сделка всё равно считается состоявшейся - леджер в памяти
// уже изменен, а следующая успешная запись его догонит.
func (g *Gateway) executeDryRun(cfg *models.BotConfig, d models.Decision, pos *models.PositionView) (*ExecutionResult, error) {
	price := d.Price
	qty := d.Quantity
	cost := qty * price

	result := &ExecutionResult{ExecutedQty: qty, AvgPrice: price}

	switch d.Action {
	case models.ActionBuy:
		if cfg.VirtualQuote < cost {
			return nil, fmt.Errorf("%w: need %.8f %s, have %.8f", ErrInsufficientBalance, cost, cfg.QuoteAsset, cfg.VirtualQuote)
		}
		cfg.VirtualQuote -= cost
		cfg.VirtualBase += qty

	case models.ActionSell:
		// На споте шорт невозможен: продать можно только имеющийся актив
		if cfg.Market == models.MarketSpot && cfg.VirtualBase < qty {
			return nil, fmt.Errorf("%w: need %.8f %s, have %.8f", ErrInsufficientBalance, qty, cfg.BaseAsset, cfg.VirtualBase)
		}
		cfg.VirtualBase -= qty
		cfg.VirtualQuote += cost

	case models.ActionClose:
		if pos == nil {
			return nil, errors.New("close decision without position")
		}
		if pos.Side == models.PositionShort {
			cfg.VirtualBase += qty
			cfg.VirtualQuote -= cost
		} else {
			cfg.VirtualBase -= qty
			cfg.VirtualQuote += cost
		}
		result.RealizedPnl = realizedPnl(pos, qty, price)

	default:
		return nil, fmt.Errorf("unexpected action %s", d.Action)
	}

	if err := g.store.UpdateLedger(cfg.ID, cfg.VirtualQuote, cfg.VirtualBase); err != nil {
		g.logger.Warn("virtual ledger persist failed",
			zap.String("bot_id", cfg.ID),
			zap.Error(err))
	}

	return result, nil
}

// ==================== Live ====================

// executeLive размещает рыночный ордер на бирже
func (g *Gateway) executeLive(ctx context.Context, cfg *models.BotConfig, d models.Decision, pos *models.PositionView) (*ExecutionResult, error) {
	// Плечо выставляется перед каждым входом: вызов идемпотентен,
	// а конфигурация бота могла измениться между тиками
	if cfg.Market == models.MarketFutures && d.Action != models.ActionClose {
		if err := g.client.SetLeverage(ctx, cfg.Leverage); err != nil {
			return nil, fmt.Errorf("set leverage: %w", err)
		}
	}

	req := exchange.OrderRequest{Quantity: d.Quantity}

	switch d.Action {
	case models.ActionBuy:
		req.Side = exchange.OrderSideBuy
	case models.ActionSell:
		req.Side = exchange.OrderSideSell
	case models.ActionClose:
		if pos == nil {
			return nil, errors.New("close decision without position")
		}
		// Закрытие - ордер противоположной стороны на весь объем
		if pos.Side == models.PositionShort {
			req.Side = exchange.OrderSideBuy
		} else {
			req.Side = exchange.OrderSideSell
		}
		req.ReduceOnly = d.ReduceOnly
	default:
		return nil, fmt.Errorf("unexpected action %s", d.Action)
	}

	order, err := g.client.PlaceOrder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	result := &ExecutionResult{
		OrderID:     order.OrderID,
		ExecutedQty: order.ExecutedQty,
		AvgPrice:    order.AvgPrice,
	}

	if d.Action == models.ActionClose {
		fillPrice := order.AvgPrice
		if fillPrice == 0 {
			fillPrice = d.Price
		}
		fillQty := order.ExecutedQty
		if fillQty == 0 {
			fillQty = d.Quantity
		}
		result.RealizedPnl = realizedPnl(pos, fillQty, fillPrice)
	}

	return result, nil
}

// realizedPnl считает реализованный PnL закрытия в котируемой валюте
//
// Для позиций без известной цены входа PnL не определен и равен нулю.
func realizedPnl(pos *models.PositionView, qty, exitPrice float64) float64 {
	if pos.EntryPrice <= 0 {
		return 0
	}
	if pos.Side == models.PositionShort {
		return (pos.EntryPrice - exitPrice) * qty
	}
	return (exitPrice - pos.EntryPrice) * qty
}
