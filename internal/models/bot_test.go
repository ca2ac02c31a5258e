package models

import (
	"errors"
	"testing"
	"time"
)

func validConfig() *BotConfig {
	return &BotConfig{
		ID:      "bot-1",
		Name:    "trend-btc",
		Market:  MarketFutures,
		Env:     EnvTestnet,
		DryRun:  true,
		Enabled: true,

		BaseAsset:  "BTC",
		QuoteAsset: "USDT",
		Interval:   "1m",
		PollPeriod: time.Minute,

		FastPeriod: 2,
		SlowPeriod: 5,

		OrderNotional:   50,
		QtyStep:         0.001,
		Leverage:        3,
		StopLossPct:     1.0,
		TakeProfitPct:   2.0,
		MaxDailyLossPct: 5,
		MaxTotalLossPct: 10,

		VirtualQuoteInitial: 1000,
		VirtualQuote:        1000,
	}
}

func TestBotConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *BotConfig)
		wantErr error
	}{
		{"valid config", func(c *BotConfig) {}, nil},
		{"empty name", func(c *BotConfig) { c.Name = "" }, ErrEmptyName},
		{"empty base asset", func(c *BotConfig) { c.BaseAsset = "" }, ErrEmptyAsset},
		{"fast equals slow", func(c *BotConfig) { c.FastPeriod = 5 }, ErrInvalidPeriods},
		{"fast above slow", func(c *BotConfig) { c.FastPeriod = 7 }, ErrInvalidPeriods},
		{"zero fast period", func(c *BotConfig) { c.FastPeriod = 0 }, ErrInvalidPeriods},
		{"notional below exchange minimum", func(c *BotConfig) { c.OrderNotional = 9.99 }, ErrInvalidNotional},
		{"zero qty step", func(c *BotConfig) { c.QtyStep = 0 }, ErrInvalidQtyStep},
		{"leverage too high", func(c *BotConfig) { c.Leverage = 126 }, ErrInvalidLeverage},
		{"leverage too low", func(c *BotConfig) { c.Leverage = 0 }, ErrInvalidLeverage},
		{"zero stop loss", func(c *BotConfig) { c.StopLossPct = 0 }, ErrInvalidStopLoss},
		{"zero take profit", func(c *BotConfig) { c.TakeProfitPct = 0 }, ErrInvalidTakeProf},
		{"negative daily loss limit", func(c *BotConfig) { c.MaxDailyLossPct = -1 }, ErrInvalidLossLimit},
		{"negative cooldown", func(c *BotConfig) { c.CooldownTicks = -1 }, ErrInvalidCooldown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBotConfigValidateSpotIgnoresLeverage(t *testing.T) {
	cfg := validConfig()
	cfg.Market = MarketSpot
	cfg.Leverage = 0

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, spot must not require leverage", err)
	}
}

func TestBotConfigValidateInvalidEnums(t *testing.T) {
	cfg := validConfig()
	cfg.Market = MarketKind("margin")
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown market kind")
	}

	cfg = validConfig()
	cfg.Env = Environment("staging")
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown environment")
	}
}

func TestSymbol(t *testing.T) {
	cfg := validConfig()
	if got := cfg.Symbol(); got != "BTCUSDT" {
		t.Errorf("Symbol() = %q, want BTCUSDT", got)
	}
}

func TestDecisionIsOrder(t *testing.T) {
	tests := []struct {
		action Action
		want   bool
	}{
		{ActionBuy, true},
		{ActionSell, true},
		{ActionClose, true},
		{ActionNone, false},
	}

	for _, tt := range tests {
		d := Decision{Action: tt.action}
		if got := d.IsOrder(); got != tt.want {
			t.Errorf("IsOrder(%s) = %v, want %v", tt.action, got, tt.want)
		}
	}
}
