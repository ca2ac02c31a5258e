package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"trendbot/internal/repository"
)

// BotHandler отдает конфигурации ботов и их статусные снапшоты
//
// Endpoints только на чтение: управление ботами идет через seed-файл
// и прямые изменения в хранилище, сервер лишь наблюдает.
type BotHandler struct {
	store  *repository.Store
	logger *zap.Logger
}

// NewBotHandler создает handler ботов
func NewBotHandler(store *repository.Store, logger *zap.Logger) *BotHandler {
	return &BotHandler{store: store, logger: logger}
}

// ListBots возвращает конфигурации всех ботов
// GET /api/v1/bots
func (h *BotHandler) ListBots(w http.ResponseWriter, r *http.Request) {
	bots, err := h.store.Bots.GetAll()
	if err != nil {
		h.serverError(w, "list bots", err)
		return
	}

	h.writeJSON(w, http.StatusOK, bots)
}

// GetBot возвращает конфигурацию одного бота
// GET /api/v1/bots/{id}
func (h *BotHandler) GetBot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	bot, err := h.store.Bots.GetByID(id)
	if err != nil {
		if errors.Is(err, repository.ErrBotNotFound) {
			http.Error(w, "bot not found", http.StatusNotFound)
			return
		}
		h.serverError(w, "get bot", err)
		return
	}

	h.writeJSON(w, http.StatusOK, bot)
}

// GetBotStatus возвращает последний статусный снапшот бота
// GET /api/v1/bots/{id}/status
func (h *BotHandler) GetBotStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	snap, err := h.store.Snapshots.Get(id)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		h.serverError(w, "get snapshot", err)
		return
	}

	h.writeJSON(w, http.StatusOK, snap)
}

// ListStatuses возвращает снапшоты всех ботов
// GET /api/v1/status
func (h *BotHandler) ListStatuses(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.store.Snapshots.GetAll()
	if err != nil {
		h.serverError(w, "list snapshots", err)
		return
	}

	h.writeJSON(w, http.StatusOK, snaps)
}

func (h *BotHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response failed", zap.Error(err))
	}
}

func (h *BotHandler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("handler error", zap.String("op", op), zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
