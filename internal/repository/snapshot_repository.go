package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"trendbot/internal/models"
)

// Ошибки репозитория снапшотов
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// SnapshotRepository - работа с таблицей bot_snapshots
//
// Таблица хранит одну строку на бота. Запись выполняется атомарным
// upsert'ом, поэтому параллельные циклы не могут повредить чужие строки.
type SnapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository создает новый экземпляр репозитория
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// snapshotPayload - JSON-часть снапшота (всё кроме индексируемых колонок)
type snapshotPayload struct {
	Config   *models.BotConfig    `json:"config,omitempty"`
	Sample   *models.MarketSample `json:"sample,omitempty"`
	Account  *models.AccountView  `json:"account,omitempty"`
	Decision *models.Decision     `json:"decision,omitempty"`
}

// Upsert атомарно вставляет или перезаписывает снапшот бота
func (r *SnapshotRepository) Upsert(snap *models.BotStatusSnapshot) error {
	payload, err := json.Marshal(snapshotPayload{
		Config:   snap.Config,
		Sample:   snap.Sample,
		Account:  snap.Account,
		Decision: snap.Decision,
	})
	if err != nil {
		return err
	}

	query := `
		INSERT INTO bot_snapshots (bot_id, status, error_message, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (bot_id) DO UPDATE
		SET status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at`

	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}

	_, err = r.db.Exec(query, snap.BotID, snap.Status, snap.Error, payload, snap.UpdatedAt)
	return err
}

// Get возвращает снапшот бота по ID
func (r *SnapshotRepository) Get(botID string) (*models.BotStatusSnapshot, error) {
	query := `
		SELECT bot_id, status, error_message, payload, updated_at
		FROM bot_snapshots
		WHERE bot_id = $1`

	snap := &models.BotStatusSnapshot{}
	var payload []byte

	err := r.db.QueryRow(query, botID).Scan(
		&snap.BotID,
		&snap.Status,
		&snap.Error,
		&payload,
		&snap.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, err
	}

	if len(payload) > 0 {
		var p snapshotPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		snap.Config = p.Config
		snap.Sample = p.Sample
		snap.Account = p.Account
		snap.Decision = p.Decision
	}

	return snap, nil
}

// GetAll возвращает снапшоты всех ботов
func (r *SnapshotRepository) GetAll() ([]*models.BotStatusSnapshot, error) {
	query := `
		SELECT bot_id, status, error_message, payload, updated_at
		FROM bot_snapshots
		ORDER BY bot_id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []*models.BotStatusSnapshot
	for rows.Next() {
		snap := &models.BotStatusSnapshot{}
		var payload []byte

		if err := rows.Scan(&snap.BotID, &snap.Status, &snap.Error, &payload, &snap.UpdatedAt); err != nil {
			return nil, err
		}

		if len(payload) > 0 {
			var p snapshotPayload
			if err := json.Unmarshal(payload, &p); err != nil {
				return nil, err
			}
			snap.Config = p.Config
			snap.Sample = p.Sample
			snap.Account = p.Account
			snap.Decision = p.Decision
		}

		snaps = append(snaps, snap)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return snaps, nil
}

// Delete удаляет снапшот бота
func (r *SnapshotRepository) Delete(botID string) error {
	result, err := r.db.Exec(`DELETE FROM bot_snapshots WHERE bot_id = $1`, botID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrSnapshotNotFound
	}

	return nil
}
