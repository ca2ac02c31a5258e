package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trendbot/internal/models"
)

// SeedBot - описание бота в YAML-файле начальной загрузки
//
// Файл заменяет внешний CRUD-слой при разработке: при старте процесса
// перечисленные боты добавляются в хранилище, если бота с таким именем
// там ещё нет. Существующие записи не трогаются - источником правды
// остаётся БД.
type SeedBot struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
	Market  string `yaml:"market"`      // spot | futures
	Env     string `yaml:"environment"` // testnet | mainnet
	DryRun  bool   `yaml:"dry_run"`

	BaseAsset  string        `yaml:"base_asset"`
	QuoteAsset string        `yaml:"quote_asset"`
	Interval   string        `yaml:"interval"`
	PollPeriod time.Duration `yaml:"poll_period"`

	FastPeriod int `yaml:"fast_period"`
	SlowPeriod int `yaml:"slow_period"`

	OrderNotional   float64 `yaml:"order_notional"`
	QtyStep         float64 `yaml:"qty_step"`
	Leverage        int     `yaml:"leverage"`
	StopLossPct     float64 `yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `yaml:"take_profit_pct"`
	MaxDailyLossPct float64 `yaml:"max_daily_loss_pct"`
	MaxTotalLossPct float64 `yaml:"max_total_loss_pct"`

	PreventDuplicates bool `yaml:"prevent_duplicates"`
	CooldownTicks     int  `yaml:"cooldown_ticks"`

	VirtualQuote float64 `yaml:"virtual_quote"` // стартовый баланс виртуального леджера
}

// seedFile - корневая структура YAML-файла
type seedFile struct {
	Bots []SeedBot `yaml:"bots"`
}

// LoadSeed читает список ботов из YAML-файла
func LoadSeed(path string) ([]SeedBot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file %q: %w", path, err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %q: %w", path, err)
	}

	return f.Bots, nil
}

// ToBotConfig преобразует seed-запись в конфигурацию бота
//
// ID не заполняется - его назначает вызывающий код при вставке.
func (s SeedBot) ToBotConfig() (*models.BotConfig, error) {
	cfg := &models.BotConfig{
		Name:    s.Name,
		Enabled: s.Enabled,
		Market:  models.MarketKind(s.Market),
		Env:     models.Environment(s.Env),
		DryRun:  s.DryRun,

		BaseAsset:  s.BaseAsset,
		QuoteAsset: s.QuoteAsset,
		Interval:   s.Interval,
		PollPeriod: s.PollPeriod,

		FastPeriod: s.FastPeriod,
		SlowPeriod: s.SlowPeriod,

		OrderNotional:   s.OrderNotional,
		QtyStep:         s.QtyStep,
		Leverage:        s.Leverage,
		StopLossPct:     s.StopLossPct,
		TakeProfitPct:   s.TakeProfitPct,
		MaxDailyLossPct: s.MaxDailyLossPct,
		MaxTotalLossPct: s.MaxTotalLossPct,

		PreventDuplicates: s.PreventDuplicates,
		CooldownTicks:     s.CooldownTicks,

		VirtualQuoteInitial: s.VirtualQuote,
		VirtualQuote:        s.VirtualQuote,
	}

	// Дефолты для необязательных полей
	if cfg.Interval == "" {
		cfg.Interval = "1m"
	}
	if cfg.PollPeriod == 0 {
		cfg.PollPeriod = time.Minute
	}
	if cfg.QtyStep == 0 {
		cfg.QtyStep = 0.0001
	}
	if cfg.Market == models.MarketFutures && cfg.Leverage == 0 {
		cfg.Leverage = 1
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("seed bot %q: %w", s.Name, err)
	}

	return cfg, nil
}
