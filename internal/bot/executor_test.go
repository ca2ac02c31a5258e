package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"trendbot/internal/exchange"
	"trendbot/internal/models"
)

func gatewayConfig() *models.BotConfig {
	cfg := riskConfig()
	cfg.Market = models.MarketSpot
	return cfg
}

func buyDecision(qty, price float64) models.Decision {
	return models.Decision{
		Action:    models.ActionBuy,
		Reason:    models.ReasonSignalLong,
		Quantity:  qty,
		Price:     price,
		Signal:    models.SignalLong,
		Timestamp: time.Now(),
	}
}

func TestDryRunBuyMutatesLedger(t *testing.T) {
	cfg := gatewayConfig()
	store := newFakeStore(cfg)
	g := NewGateway(store, &fakeExchange{}, zap.NewNop())

	result, err := g.Execute(context.Background(), cfg, buyDecision(0.5, 100), nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if cfg.VirtualQuote != 950 {
		t.Errorf("VirtualQuote = %v, want 950", cfg.VirtualQuote)
	}
	if cfg.VirtualBase != 0.5 {
		t.Errorf("VirtualBase = %v, want 0.5", cfg.VirtualBase)
	}
	if result.ExecutedQty != 0.5 || result.AvgPrice != 100 {
		t.Errorf("result = %+v, want qty 0.5 at price 100", result)
	}

	// Леджер должен уехать в хранилище
	persisted, _ := store.GetBot(cfg.ID)
	if persisted.VirtualQuote != 950 || persisted.VirtualBase != 0.5 {
		t.Errorf("persisted ledger = %v/%v, want 950/0.5", persisted.VirtualQuote, persisted.VirtualBase)
	}
}

func TestDryRunRejectsOverspend(t *testing.T) {
	cfg := gatewayConfig()
	cfg.VirtualQuote = 40
	store := newFakeStore(cfg)
	g := NewGateway(store, &fakeExchange{}, zap.NewNop())

	_, err := g.Execute(context.Background(), cfg, buyDecision(0.5, 100), nil)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance", err)
	}

	// Леджер не изменился
	if cfg.VirtualQuote != 40 || cfg.VirtualBase != 0 {
		t.Errorf("ledger mutated on rejected order: %v/%v", cfg.VirtualQuote, cfg.VirtualBase)
	}
}

func TestDryRunSpotSellRequiresBase(t *testing.T) {
	cfg := gatewayConfig()
	store := newFakeStore(cfg)
	g := NewGateway(store, &fakeExchange{}, zap.NewNop())

	d := buyDecision(0.5, 100)
	d.Action = models.ActionSell
	d.Reason = models.ReasonSignalShort

	if _, err := g.Execute(context.Background(), cfg, d, nil); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("error = %v, want ErrInsufficientBalance for spot short", err)
	}
}

func TestDryRunCloseRealizesPnl(t *testing.T) {
	tests := []struct {
		name      string
		side      models.PositionSide
		entry     float64
		exit      float64
		qty       float64
		wantPnl   float64
		wantQuote float64
		wantBase  float64
	}{
		{"long close at loss", models.PositionLong, 100, 95, 0.5, -2.5, 1047.5, -0.5},
		{"long close at profit", models.PositionLong, 100, 110, 0.5, 5, 1055, -0.5},
		{"short close at loss", models.PositionShort, 100, 104, 0.5, -2, 948, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := gatewayConfig()
			cfg.Market = models.MarketFutures
			store := newFakeStore(cfg)
			g := NewGateway(store, &fakeExchange{}, zap.NewNop())

			pos := &models.PositionView{
				Side:       tt.side,
				Quantity:   tt.qty,
				EntryPrice: tt.entry,
				MarkPrice:  tt.exit,
			}

			d := models.Decision{
				Action:     models.ActionClose,
				Reason:     models.ReasonStopLoss,
				Quantity:   tt.qty,
				Price:      tt.exit,
				ReduceOnly: true,
				Timestamp:  time.Now(),
			}

			result, err := g.Execute(context.Background(), cfg, d, pos)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			if result.RealizedPnl != tt.wantPnl {
				t.Errorf("RealizedPnl = %v, want %v", result.RealizedPnl, tt.wantPnl)
			}
			if cfg.VirtualQuote != tt.wantQuote {
				t.Errorf("VirtualQuote = %v, want %v", cfg.VirtualQuote, tt.wantQuote)
			}
			if cfg.VirtualBase != tt.wantBase {
				t.Errorf("VirtualBase = %v, want %v", cfg.VirtualBase, tt.wantBase)
			}
		})
	}
}

func TestLiveEntrySetsLeverage(t *testing.T) {
	cfg := riskConfig()
	cfg.DryRun = false
	cfg.Leverage = 5
	ex := &fakeExchange{}
	g := NewGateway(newFakeStore(cfg), ex, zap.NewNop())

	if _, err := g.Execute(context.Background(), cfg, buyDecision(0.5, 100), nil); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if len(ex.leverageCalls) != 1 || ex.leverageCalls[0] != 5 {
		t.Errorf("leverage calls = %v, want [5]", ex.leverageCalls)
	}

	orders := ex.placedOrders()
	if len(orders) != 1 || orders[0].Side != exchange.OrderSideBuy {
		t.Fatalf("orders = %+v, want one BUY", orders)
	}
}

func TestLiveCloseShortBuysBack(t *testing.T) {
	cfg := riskConfig()
	cfg.DryRun = false
	ex := &fakeExchange{}
	g := NewGateway(newFakeStore(cfg), ex, zap.NewNop())

	pos := &models.PositionView{
		Side:       models.PositionShort,
		Quantity:   0.5,
		EntryPrice: 100,
		MarkPrice:  104,
	}

	d := models.Decision{
		Action:     models.ActionClose,
		Reason:     models.ReasonStopLoss,
		Quantity:   0.5,
		Price:      104,
		ReduceOnly: true,
		Timestamp:  time.Now(),
	}

	result, err := g.Execute(context.Background(), cfg, d, pos)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	orders := ex.placedOrders()
	if len(orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(orders))
	}
	if orders[0].Side != exchange.OrderSideBuy || !orders[0].ReduceOnly {
		t.Errorf("order = %+v, want reduce-only BUY", orders[0])
	}

	// Закрытие не трогает плечо
	if len(ex.leverageCalls) != 0 {
		t.Errorf("leverage calls = %v, want none on close", ex.leverageCalls)
	}

	if result.RealizedPnl != -2 {
		t.Errorf("RealizedPnl = %v, want -2", result.RealizedPnl)
	}
}
