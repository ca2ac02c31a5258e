package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"trendbot/internal/models"
)

// Ошибки репозитория ботов
var (
	ErrBotNotFound = errors.New("bot not found")
	ErrBotExists   = errors.New("bot already exists")
)

// botColumns - список колонок таблицы bot_configs в порядке сканирования
const botColumns = `id, name, enabled, market, environment, dry_run,
		base_asset, quote_asset, interval, poll_period_ms,
		fast_period, slow_period,
		order_notional, qty_step, leverage, stop_loss_pct, take_profit_pct,
		max_daily_loss_pct, max_total_loss_pct,
		prevent_duplicates, cooldown_ticks,
		virtual_quote_initial, virtual_quote, virtual_base,
		created_at, updated_at`

// BotRepository - работа с таблицей bot_configs
type BotRepository struct {
	db *sql.DB
}

// NewBotRepository создает новый экземпляр репозитория
func NewBotRepository(db *sql.DB) *BotRepository {
	return &BotRepository{db: db}
}

// scanBot сканирует одну строку в BotConfig
func scanBot(row interface{ Scan(...interface{}) error }) (*models.BotConfig, error) {
	bot := &models.BotConfig{}
	var pollMs int64

	err := row.Scan(
		&bot.ID,
		&bot.Name,
		&bot.Enabled,
		&bot.Market,
		&bot.Env,
		&bot.DryRun,
		&bot.BaseAsset,
		&bot.QuoteAsset,
		&bot.Interval,
		&pollMs,
		&bot.FastPeriod,
		&bot.SlowPeriod,
		&bot.OrderNotional,
		&bot.QtyStep,
		&bot.Leverage,
		&bot.StopLossPct,
		&bot.TakeProfitPct,
		&bot.MaxDailyLossPct,
		&bot.MaxTotalLossPct,
		&bot.PreventDuplicates,
		&bot.CooldownTicks,
		&bot.VirtualQuoteInitial,
		&bot.VirtualQuote,
		&bot.VirtualBase,
		&bot.CreatedAt,
		&bot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	bot.PollPeriod = time.Duration(pollMs) * time.Millisecond
	return bot, nil
}

// Create создает нового бота
func (r *BotRepository) Create(bot *models.BotConfig) error {
	query := `
		INSERT INTO bot_configs (id, name, enabled, market, environment, dry_run,
			base_asset, quote_asset, interval, poll_period_ms,
			fast_period, slow_period,
			order_notional, qty_step, leverage, stop_loss_pct, take_profit_pct,
			max_daily_loss_pct, max_total_loss_pct,
			prevent_duplicates, cooldown_ticks,
			virtual_quote_initial, virtual_quote, virtual_base,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	now := time.Now()
	bot.CreatedAt = now
	bot.UpdatedAt = now

	_, err := r.db.Exec(
		query,
		bot.ID,
		bot.Name,
		bot.Enabled,
		bot.Market,
		bot.Env,
		bot.DryRun,
		bot.BaseAsset,
		bot.QuoteAsset,
		bot.Interval,
		bot.PollPeriod.Milliseconds(),
		bot.FastPeriod,
		bot.SlowPeriod,
		bot.OrderNotional,
		bot.QtyStep,
		bot.Leverage,
		bot.StopLossPct,
		bot.TakeProfitPct,
		bot.MaxDailyLossPct,
		bot.MaxTotalLossPct,
		bot.PreventDuplicates,
		bot.CooldownTicks,
		bot.VirtualQuoteInitial,
		bot.VirtualQuote,
		bot.VirtualBase,
		bot.CreatedAt,
		bot.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrBotExists
		}
		return err
	}

	return nil
}

// GetByID возвращает бота по ID
func (r *BotRepository) GetByID(id string) (*models.BotConfig, error) {
	query := `SELECT ` + botColumns + ` FROM bot_configs WHERE id = $1`

	bot, err := scanBot(r.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBotNotFound
		}
		return nil, err
	}

	return bot, nil
}

// GetByName возвращает бота по имени (имена уникальны)
func (r *BotRepository) GetByName(name string) (*models.BotConfig, error) {
	query := `SELECT ` + botColumns + ` FROM bot_configs WHERE name = $1`

	bot, err := scanBot(r.db.QueryRow(query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBotNotFound
		}
		return nil, err
	}

	return bot, nil
}

// GetAll возвращает всех ботов
func (r *BotRepository) GetAll() ([]*models.BotConfig, error) {
	query := `SELECT ` + botColumns + ` FROM bot_configs ORDER BY created_at`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bots []*models.BotConfig
	for rows.Next() {
		bot, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		bots = append(bots, bot)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return bots, nil
}

// Update обновляет конфигурацию бота
func (r *BotRepository) Update(bot *models.BotConfig) error {
	query := `
		UPDATE bot_configs
		SET name = $1, enabled = $2, market = $3, environment = $4, dry_run = $5,
			base_asset = $6, quote_asset = $7, interval = $8, poll_period_ms = $9,
			fast_period = $10, slow_period = $11,
			order_notional = $12, qty_step = $13, leverage = $14,
			stop_loss_pct = $15, take_profit_pct = $16,
			max_daily_loss_pct = $17, max_total_loss_pct = $18,
			prevent_duplicates = $19, cooldown_ticks = $20,
			virtual_quote_initial = $21, virtual_quote = $22, virtual_base = $23,
			updated_at = $24
		WHERE id = $25`

	bot.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		query,
		bot.Name,
		bot.Enabled,
		bot.Market,
		bot.Env,
		bot.DryRun,
		bot.BaseAsset,
		bot.QuoteAsset,
		bot.Interval,
		bot.PollPeriod.Milliseconds(),
		bot.FastPeriod,
		bot.SlowPeriod,
		bot.OrderNotional,
		bot.QtyStep,
		bot.Leverage,
		bot.StopLossPct,
		bot.TakeProfitPct,
		bot.MaxDailyLossPct,
		bot.MaxTotalLossPct,
		bot.PreventDuplicates,
		bot.CooldownTicks,
		bot.VirtualQuoteInitial,
		bot.VirtualQuote,
		bot.VirtualBase,
		bot.UpdatedAt,
		bot.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBotNotFound
	}

	return nil
}

// UpdateLedger обновляет балансы виртуального леджера бота
//
// Вызывается гейтвеем исполнения после каждой dry-run сделки.
// Затрагивает только свой bot id, поэтому параллельные циклы
// не конфликтуют между собой.
func (r *BotRepository) UpdateLedger(id string, quote, base float64) error {
	query := `
		UPDATE bot_configs
		SET virtual_quote = $1, virtual_base = $2, updated_at = $3
		WHERE id = $4`

	result, err := r.db.Exec(query, quote, base, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBotNotFound
	}

	return nil
}

// Delete удаляет бота вместе с его снапшотом статуса
func (r *BotRepository) Delete(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM bot_snapshots WHERE bot_id = $1`, id); err != nil {
		return err
	}

	result, err := tx.Exec(`DELETE FROM bot_configs WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBotNotFound
	}

	return tx.Commit()
}

// Count возвращает общее количество ботов
func (r *BotRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM bot_configs`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением UNIQUE constraint
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "23505")
}
