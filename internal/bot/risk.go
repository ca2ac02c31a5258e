package bot

import (
	"time"

	"trendbot/internal/models"
	"trendbot/pkg/utils"
)

// RiskInput - входные данные риск-движка на одном тике
type RiskInput struct {
	Config   *models.BotConfig
	State    *RuntimeState
	Signal   models.Signal
	Price    float64
	Position *models.PositionView

	// Equity - текущий капитал аккаунта в котируемой валюте,
	// база для пересчета процентных лимитов убытков
	Equity float64

	Now time.Time
}

// Evaluate принимает торговое решение одного тика
//
// Проверки выполняются в строгом порядке:
//
//  1. ограничитель убытков - при срабатывании замораживаются все
//     действия, включая закрытие позиции;
//  2. стоп-лосс / тейк-профит открытой позиции;
//  3. гейтинг входа и отображение сигнала в действие.
//
// Любой тик порождает ровно одно решение, отказы получают причину.
func Evaluate(in RiskInput) models.Decision {
	decision := models.Decision{
		Action:    models.ActionNone,
		Signal:    in.Signal,
		Timestamp: in.Now,
	}

	cfg := in.Config

	// 1. Ограничитель убытков. Лимиты заданы в процентах от текущего
	// капитала и пересчитываются каждый тик. Если капитал неизвестен,
	// базой служит стартовый виртуальный баланс.
	capital := in.Equity
	if capital <= 0 {
		capital = cfg.VirtualQuoteInitial
	}
	if cfg.MaxDailyLossPct > 0 && in.State.DailyLoss >= capital*cfg.MaxDailyLossPct/100 {
		decision.Reason = models.ReasonLossLimitDaily
		return decision
	}
	if cfg.MaxTotalLossPct > 0 && in.State.TotalLoss >= capital*cfg.MaxTotalLossPct/100 {
		decision.Reason = models.ReasonLossLimitTotal
		return decision
	}

	// 2. Стоп-лосс / тейк-профит. Цена входа неизвестна для спотовых
	// позиций, восстановленных из баланса, - тогда проверка пропускается.
	if pos := in.Position; pos != nil && pos.EntryPrice > 0 {
		pnlPct := utils.PnlPercent(pos.EntryPrice, pos.MarkPrice)
		if pos.Side == models.PositionShort {
			pnlPct = -pnlPct
		}

		if cfg.StopLossPct > 0 && pnlPct <= -cfg.StopLossPct {
			return closeDecision(decision, pos, models.ReasonStopLoss)
		}
		if cfg.TakeProfitPct > 0 && pnlPct >= cfg.TakeProfitPct {
			return closeDecision(decision, pos, models.ReasonTakeProfit)
		}
	}

	// 3. Гейтинг входа
	if in.Signal == models.SignalHold {
		decision.Reason = models.ReasonNoSignal
		return decision
	}

	qty := utils.FloorToStep(cfg.OrderNotional/in.Price, cfg.QtyStep)
	if qty <= 0 || qty*in.Price < models.MinOrderNotional {
		decision.Reason = models.ReasonQtyInvalid
		return decision
	}

	if cfg.CooldownTicks > 0 {
		if elapsed := in.State.CooldownElapsed(); elapsed >= 0 && elapsed < cfg.CooldownTicks {
			decision.Reason = models.ReasonCooldown
			return decision
		}
	}

	if cfg.PreventDuplicates && in.Position != nil {
		decision.Reason = models.ReasonPositionExists
		return decision
	}

	// Сигнал в сторону уже открытой позиции её не наращивает
	if pos := in.Position; pos != nil &&
		((in.Signal == models.SignalLong && pos.Side == models.PositionLong) ||
			(in.Signal == models.SignalShort && pos.Side == models.PositionShort)) {
		decision.Reason = models.ReasonPositionExists
		return decision
	}

	decision.Quantity = qty
	decision.Price = in.Price

	if in.Signal == models.SignalLong {
		decision.Action = models.ActionBuy
		decision.Reason = models.ReasonSignalLong
	} else {
		decision.Action = models.ActionSell
		decision.Reason = models.ReasonSignalShort
	}

	return decision
}

// closeDecision строит reduce-only закрытие всей позиции
func closeDecision(base models.Decision, pos *models.PositionView, reason models.Reason) models.Decision {
	base.Action = models.ActionClose
	base.Reason = reason
	base.Quantity = pos.Quantity
	base.Price = pos.MarkPrice
	base.ReduceOnly = true
	return base
}

// IsBlockedReason возвращает true для причин, переводящих бота в BLOCKED
func IsBlockedReason(r models.Reason) bool {
	return r == models.ReasonLossLimitDaily || r == models.ReasonLossLimitTotal
}
