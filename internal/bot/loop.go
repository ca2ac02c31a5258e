package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"trendbot/internal/exchange"
	"trendbot/internal/models"
	"trendbot/internal/repository"
	"trendbot/internal/signal"
	"trendbot/pkg/retry"
)

// LoopConfig - параметры цикла одного бота
type LoopConfig struct {
	BotID string

	// CandleLimit - сколько свечей запрашивается на каждом тике
	CandleLimit int

	// MinTickInterval - нижняя граница паузы между тиками
	MinTickInterval time.Duration

	// RequestTimeout - таймаут одного сетевого вызова внутри тика
	RequestTimeout time.Duration
}

// Loop - цикл опроса одного бота
//
// Каждый бот работает в собственной горутине с независимым темпом.
// Конфигурация перечитывается из хранилища на каждом тике, поэтому
// изменения параметров подхватываются без рестарта цикла.
type Loop struct {
	cfg     LoopConfig
	store   Store
	client  Exchange
	gateway *Gateway
	logger  *zap.Logger

	state      *RuntimeState
	backoff    retry.Config
	lastStatus models.Status

	// lastPoll - последний известный период опроса, используется для
	// пейсинга когда тик упал до чтения конфигурации
	lastPoll time.Duration
}

// NewLoop создает цикл бота
func NewLoop(cfg LoopConfig, store Store, client Exchange, logger *zap.Logger) *Loop {
	return &Loop{
		cfg:     cfg,
		store:   store,
		client:  client,
		gateway: NewGateway(store, client, logger),
		logger:  logger.With(zap.String("bot_id", cfg.BotID)),

		state:    NewRuntimeState(time.Now()),
		backoff:  retry.TickBackoffConfig(),
		lastPoll: time.Minute,
	}
}

// Run крутит цикл до отмены контекста или удаления бота
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("bot loop started")
	defer l.logger.Info("bot loop stopped")

	for {
		started := time.Now()
		l.state.BeginTick(started)

		poll, err := l.tick(ctx)
		elapsed := time.Since(started)

		TickLatency.WithLabelValues(l.cfg.BotID).Observe(float64(elapsed.Milliseconds()))

		switch {
		case errors.Is(err, errBotDeleted):
			l.logger.Info("bot removed from store, stopping loop")
			return
		case err != nil:
			l.state.ConsecutiveFailures++
			TicksTotal.WithLabelValues(l.cfg.BotID, "error").Inc()
			l.logger.Error("tick failed",
				zap.Int("tick", l.state.Tick),
				zap.Int("consecutive_failures", l.state.ConsecutiveFailures),
				zap.Error(err))
		default:
			l.state.ConsecutiveFailures = 0
			TicksTotal.WithLabelValues(l.cfg.BotID, "ok").Inc()
		}

		if !l.sleep(ctx, l.pause(poll, elapsed)) {
			return
		}
	}
}

// errBotDeleted сигнализирует циклу, что бот удален из хранилища
var errBotDeleted = errors.New("bot deleted")

// pause вычисляет паузу до следующего тика
//
// Пейсинг идет по настенным часам: из периода опроса вычитается
// длительность тика, но пауза не опускается ниже минимального пола.
// После серии неудачных тиков пауза растет экспоненциально.
func (l *Loop) pause(poll, elapsed time.Duration) time.Duration {
	if poll <= 0 {
		poll = l.lastPoll
	} else {
		l.lastPoll = poll
	}

	pause := poll - elapsed
	if pause < l.cfg.MinTickInterval {
		pause = l.cfg.MinTickInterval
	}

	if l.state.ConsecutiveFailures > 0 {
		if delay := l.backoff.Delay(l.state.ConsecutiveFailures - 1); delay > pause {
			pause = delay
		}
	}

	return pause
}

// sleep ждет заданную паузу, возвращает false при отмене контекста
func (l *Loop) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// tick выполняет один тик: конфигурация, рынок, сигнал, риск, исполнение
//
// Возвращает период опроса бота для пейсинга. Любая ошибка фиксируется
// в снапшоте со статусом ERROR, цикл при этом продолжает работать.
func (l *Loop) tick(ctx context.Context) (time.Duration, error) {
	// 1. Конфигурация перечитывается каждый тик
	cfg, err := l.store.GetBot(l.cfg.BotID)
	if err != nil {
		if errors.Is(err, repository.ErrBotNotFound) {
			return 0, errBotDeleted
		}
		return 0, l.failTick(nil, fmt.Errorf("load config: %w", err))
	}

	// 2. Выключенный бот не торгует, но продолжает отмечаться в снапшоте
	if !cfg.Enabled {
		l.writeSnapshot(&models.BotStatusSnapshot{
			BotID:  cfg.ID,
			Status: models.StatusDisabled,
			Config: cfg,
		})
		return cfg.PollPeriod, nil
	}

	// 3. Рыночные данные
	candles, err := l.getCandles(ctx, cfg)
	if err != nil {
		return cfg.PollPeriod, l.failTick(cfg, fmt.Errorf("get candles: %w", err))
	}
	if len(candles) == 0 {
		return cfg.PollPeriod, l.failTick(cfg, errors.New("exchange returned no candles"))
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	price := closes[len(closes)-1]

	// 4. Сигнал
	sig, err := signal.Compute(closes, cfg.FastPeriod, cfg.SlowPeriod)
	if err != nil {
		return cfg.PollPeriod, l.failTick(cfg, fmt.Errorf("compute signal: %w", err))
	}

	sample := &models.MarketSample{
		Price:   price,
		FastMA:  sig.Fast,
		SlowMA:  sig.Slow,
		Signal:  sig.Signal,
		Candles: len(candles),
	}

	// 5. Аккаунт и позиция
	account, err := l.getAccountView(ctx, cfg, price)
	if err != nil {
		return cfg.PollPeriod, l.failTick(cfg, fmt.Errorf("get account: %w", err))
	}

	// 6. Решение
	decision := Evaluate(RiskInput{
		Config:   cfg,
		State:    l.state,
		Signal:   sig.Signal,
		Price:    price,
		Position: account.Position,
		Equity:   account.Equity,
		Now:      time.Now(),
	})
	RecordDecision(cfg.ID, string(decision.Action), string(decision.Reason))

	// 7. Исполнение
	if decision.IsOrder() {
		if err := l.execute(ctx, cfg, decision, account.Position); err != nil {
			return cfg.PollPeriod, l.failTick(cfg, err)
		}
	}

	// 8. Снапшот
	status := models.StatusRunning
	if IsBlockedReason(decision.Reason) {
		status = models.StatusBlocked
	}

	RecordLoss(cfg.ID, l.state.DailyLoss, l.state.TotalLoss)
	l.writeSnapshot(&models.BotStatusSnapshot{
		BotID:    cfg.ID,
		Status:   status,
		Config:   cfg,
		Sample:   sample,
		Account:  account,
		Decision: &decision,
	})

	return cfg.PollPeriod, nil
}

// execute исполняет решение через гейтвей и обновляет runtime-состояние
func (l *Loop) execute(ctx context.Context, cfg *models.BotConfig, decision models.Decision, pos *models.PositionView) error {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
	defer cancel()

	mode := "live"
	if cfg.DryRun {
		mode = "dry_run"
	}

	result, err := l.gateway.Execute(callCtx, cfg, decision, pos)
	if err != nil {
		OrdersTotal.WithLabelValues(cfg.ID, mode, "failed").Inc()
		return fmt.Errorf("execute %s: %w", decision.Action, err)
	}
	OrdersTotal.WithLabelValues(cfg.ID, mode, "success").Inc()

	l.state.RecordOrder()

	if decision.Action == models.ActionClose {
		l.state.RecordRealized(result.RealizedPnl)
		l.state.EntryPrice = 0
	} else {
		entry := result.AvgPrice
		if entry == 0 {
			entry = decision.Price
		}
		l.state.EntryPrice = entry
	}

	l.logger.Info("order executed",
		zap.String("action", string(decision.Action)),
		zap.String("reason", string(decision.Reason)),
		zap.String("mode", mode),
		zap.Float64("quantity", result.ExecutedQty),
		zap.Float64("price", result.AvgPrice),
		zap.Float64("realized_pnl", result.RealizedPnl))

	return nil
}

// getCandles запрашивает свечи с таймаутом на вызов
func (l *Loop) getCandles(ctx context.Context, cfg *models.BotConfig) ([]exchange.Candle, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
	defer cancel()
	return l.client.GetCandles(callCtx, cfg.Interval, l.cfg.CandleLimit)
}

// getAccountView собирает снапшот аккаунта и позиции
//
// В dry-run режиме источником служит виртуальный леджер бота, в live -
// биржа. Позиция dry-run синтезируется из базового баланса леджера,
// цена входа берется из runtime-состояния цикла.
func (l *Loop) getAccountView(ctx context.Context, cfg *models.BotConfig, price float64) (*models.AccountView, error) {
	if cfg.DryRun {
		return l.virtualAccountView(cfg, price), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
	defer cancel()

	account, err := l.client.GetAccount(callCtx)
	if err != nil {
		return nil, err
	}

	posCtx, cancel := context.WithTimeout(ctx, l.cfg.RequestTimeout)
	defer cancel()

	positions, err := l.client.GetPositions(posCtx)
	if err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	view := &models.AccountView{
		QuoteBalance: account.QuoteBalance,
		Equity:       account.QuoteBalance,
	}
	if len(positions) > 0 {
		p := positions[0]
		side := models.PositionLong
		if p.Side == "short" {
			side = models.PositionShort
		}

		mark := p.MarkPrice
		if mark == 0 {
			mark = price
		}

		view.Position = &models.PositionView{
			Side:          side,
			Quantity:      p.Quantity,
			EntryPrice:    p.EntryPrice,
			MarkPrice:     mark,
			UnrealizedPnl: unrealizedPnl(side, p.EntryPrice, mark, p.Quantity),
			Leverage:      cfg.Leverage,
		}

		// Капитал: на споте базовый актив оценивается по марке,
		// на фьючерсах к балансу добавляется нереализованный PnL
		if cfg.Market == models.MarketSpot {
			view.Equity += p.Quantity * mark
		} else {
			view.Equity += view.Position.UnrealizedPnl
		}
	}

	return view, nil
}

// virtualAccountView строит снапшот аккаунта из виртуального леджера
func (l *Loop) virtualAccountView(cfg *models.BotConfig, price float64) *models.AccountView {
	view := &models.AccountView{
		QuoteBalance: cfg.VirtualQuote,
		Equity:       cfg.VirtualQuote + cfg.VirtualBase*price,
	}

	// Пыль ниже шага количества позицией не считается
	if math.Abs(cfg.VirtualBase) < cfg.QtyStep {
		return view
	}

	side := models.PositionLong
	qty := cfg.VirtualBase
	if qty < 0 {
		side = models.PositionShort
		qty = -qty
	}

	view.Position = &models.PositionView{
		Side:          side,
		Quantity:      qty,
		EntryPrice:    l.state.EntryPrice,
		MarkPrice:     price,
		UnrealizedPnl: unrealizedPnl(side, l.state.EntryPrice, price, qty),
		Leverage:      cfg.Leverage,
	}

	return view
}

// failTick записывает снапшот ERROR и возвращает ошибку тика
func (l *Loop) failTick(cfg *models.BotConfig, err error) error {
	snap := &models.BotStatusSnapshot{
		BotID:  l.cfg.BotID,
		Status: models.StatusError,
		Config: cfg,
		Error:  err.Error(),
	}
	l.writeSnapshot(snap)
	return err
}

// writeSnapshot перезаписывает снапшот статуса, ошибки записи не фатальны
func (l *Loop) writeSnapshot(snap *models.BotStatusSnapshot) {
	snap.UpdatedAt = time.Now()

	if l.lastStatus != snap.Status {
		if l.lastStatus != "" && !CanTransition(l.lastStatus, snap.Status) {
			l.logger.Warn("status transition outside normal lifecycle",
				zap.String("from", string(l.lastStatus)),
				zap.String("to", string(snap.Status)))
		}
		l.logger.Info("bot status changed",
			zap.String("status", string(snap.Status)),
			zap.String("info", StatusInfo(snap.Status)),
			zap.Bool("trading", IsTrading(snap.Status)))
		l.lastStatus = snap.Status
	}

	RecordStatus(snap.BotID, string(snap.Status))

	if err := l.store.UpsertSnapshot(snap); err != nil {
		l.logger.Warn("snapshot persist failed", zap.Error(err))
	}
}

// unrealizedPnl считает нереализованный PnL позиции в котируемой валюте
func unrealizedPnl(side models.PositionSide, entry, mark, qty float64) float64 {
	if entry <= 0 {
		return 0
	}
	if side == models.PositionShort {
		return (entry - mark) * qty
	}
	return (mark - entry) * qty
}
