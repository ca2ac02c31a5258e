package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"trendbot/internal/models"
)

func testSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		ReconcileInterval: time.Hour, // реконсиляция в тестах вызывается вручную
		CandleLimit:       200,
		MinTickInterval:   10 * time.Millisecond,
		RequestTimeout:    time.Second,
	}
}

func okFactory(ex Exchange) ClientFactory {
	return func(cfg *models.BotConfig) (Exchange, error) {
		return ex, nil
	}
}

func TestReconcileStartsAndIsIdempotent(t *testing.T) {
	cfg := gatewayConfig()
	store := newFakeStore(cfg)
	ex := &fakeExchange{candles: candleSeries(1, 2, 3, 100)}

	s := NewScheduler(testSchedulerConfig(), store, okFactory(ex), zap.NewNop())
	defer s.StopAll()

	ctx := context.Background()
	s.Reconcile(ctx)

	if got := s.LoopCount(); got != 1 {
		t.Fatalf("LoopCount = %d, want 1", got)
	}

	// Повторная реконсиляция не плодит циклы
	s.Reconcile(ctx)
	s.Reconcile(ctx)
	if got := s.LoopCount(); got != 1 {
		t.Errorf("LoopCount = %d after repeated reconcile, want 1", got)
	}
}

func TestReconcileStopsDeletedBot(t *testing.T) {
	cfg := gatewayConfig()
	store := newFakeStore(cfg)
	ex := &fakeExchange{candles: candleSeries(1, 2, 3, 100)}

	s := NewScheduler(testSchedulerConfig(), store, okFactory(ex), zap.NewNop())
	defer s.StopAll()

	ctx := context.Background()
	s.Reconcile(ctx)
	if got := s.LoopCount(); got != 1 {
		t.Fatalf("LoopCount = %d, want 1", got)
	}

	store.deleteBot("bot-1")
	s.Reconcile(ctx)

	if got := s.LoopCount(); got != 0 {
		t.Errorf("LoopCount = %d after delete, want 0", got)
	}
}

func TestReconcileSkipsDisabledBot(t *testing.T) {
	cfg := gatewayConfig()
	cfg.Enabled = false
	store := newFakeStore(cfg)

	s := NewScheduler(testSchedulerConfig(), store, okFactory(&fakeExchange{}), zap.NewNop())
	defer s.StopAll()

	s.Reconcile(context.Background())

	if got := s.LoopCount(); got != 0 {
		t.Errorf("LoopCount = %d for disabled bot, want 0", got)
	}

	// Наблюдатели всё равно видят бота через снапшот
	snap := store.snapshot("bot-1")
	if snap == nil || snap.Status != models.StatusDisabled {
		t.Errorf("snapshot = %+v, want DISABLED", snap)
	}
}

func TestReconcileSkipsBotWithoutCredentials(t *testing.T) {
	cfg := gatewayConfig()
	store := newFakeStore(cfg)

	factory := func(cfg *models.BotConfig) (Exchange, error) {
		return nil, errors.New("no API credentials for environment")
	}

	s := NewScheduler(testSchedulerConfig(), store, factory, zap.NewNop())
	defer s.StopAll()

	s.Reconcile(context.Background())

	if got := s.LoopCount(); got != 0 {
		t.Errorf("LoopCount = %d without credentials, want 0", got)
	}
}

func TestStopAllCancelsLoops(t *testing.T) {
	cfg := gatewayConfig()
	store := newFakeStore(cfg)
	ex := &fakeExchange{candles: candleSeries(1, 2, 3, 100)}

	s := NewScheduler(testSchedulerConfig(), store, okFactory(ex), zap.NewNop())
	s.Reconcile(context.Background())

	done := make(chan struct{})
	go func() {
		s.StopAll()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("StopAll did not finish in time")
	}

	if got := s.LoopCount(); got != 0 {
		t.Errorf("LoopCount = %d after StopAll, want 0", got)
	}
}
