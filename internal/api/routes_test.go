package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"trendbot/internal/models"
	"trendbot/internal/repository"
)

func newTestRouter(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	router := SetupRoutes(&Dependencies{
		DB:     db,
		Store:  repository.NewStore(db),
		Logger: zap.NewNop(),
	})

	return router, mock
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestGetBotStatusEndpoint(t *testing.T) {
	router, mock := newTestRouter(t)

	payload, _ := json.Marshal(map[string]interface{}{
		"sample": &models.MarketSample{Price: 100, Signal: models.SignalLong, Candles: 200},
	})
	rows := sqlmock.NewRows([]string{"bot_id", "status", "error_message", "payload", "updated_at"}).
		AddRow("bot-1", "RUNNING", "", payload, time.Now())
	mock.ExpectQuery(`SELECT .+ FROM bot_snapshots WHERE bot_id = \$1`).
		WithArgs("bot-1").
		WillReturnRows(rows)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bots/bot-1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var snap models.BotStatusSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if snap.Status != models.StatusRunning {
		t.Errorf("Status = %v, want RUNNING", snap.Status)
	}
	if snap.Sample == nil || snap.Sample.Price != 100 {
		t.Errorf("Sample = %+v, want price 100", snap.Sample)
	}
}

func TestGetBotNotFound(t *testing.T) {
	router, mock := newTestRouter(t)

	mock.ExpectQuery(`SELECT .+ FROM bot_configs WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bots/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
