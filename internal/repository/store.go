package repository

import (
	"database/sql"

	"trendbot/internal/models"
)

// Store объединяет репозитории в контракт хранилища, который потребляют
// цикл бота и планировщик (см. bot.Store)
type Store struct {
	Bots      *BotRepository
	Snapshots *SnapshotRepository
}

// NewStore создает хранилище поверх одного подключения к БД
func NewStore(db *sql.DB) *Store {
	return &Store{
		Bots:      NewBotRepository(db),
		Snapshots: NewSnapshotRepository(db),
	}
}

// ListBots возвращает конфигурации всех ботов
func (s *Store) ListBots() ([]*models.BotConfig, error) {
	return s.Bots.GetAll()
}

// GetBot возвращает конфигурацию бота по ID
func (s *Store) GetBot(id string) (*models.BotConfig, error) {
	return s.Bots.GetByID(id)
}

// UpdateLedger сохраняет балансы виртуального леджера
func (s *Store) UpdateLedger(id string, quote, base float64) error {
	return s.Bots.UpdateLedger(id, quote, base)
}

// UpsertSnapshot перезаписывает снапшот статуса бота
func (s *Store) UpsertSnapshot(snap *models.BotStatusSnapshot) error {
	return s.Snapshots.Upsert(snap)
}

// GetSnapshot возвращает снапшот статуса бота
func (s *Store) GetSnapshot(id string) (*models.BotStatusSnapshot, error) {
	return s.Snapshots.Get(id)
}
