package bot

import (
	"context"
	"sync"

	"trendbot/internal/exchange"
	"trendbot/internal/models"
	"trendbot/internal/repository"
)

// fakeStore - хранилище в памяти для тестов ядра
type fakeStore struct {
	mu        sync.Mutex
	bots      map[string]*models.BotConfig
	snapshots map[string]*models.BotStatusSnapshot

	listErr   error
	ledgerErr error
}

func newFakeStore(bots ...*models.BotConfig) *fakeStore {
	s := &fakeStore{
		bots:      make(map[string]*models.BotConfig),
		snapshots: make(map[string]*models.BotStatusSnapshot),
	}
	for _, b := range bots {
		s.bots[b.ID] = b
	}
	return s
}

func (s *fakeStore) ListBots() ([]*models.BotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*models.BotConfig, 0, len(s.bots))
	for _, b := range s.bots {
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeStore) GetBot(id string) (*models.BotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bots[id]
	if !ok {
		return nil, repository.ErrBotNotFound
	}
	// Копия имитирует перечитывание строки из БД
	cp := *b
	return &cp, nil
}

func (s *fakeStore) UpdateLedger(id string, quote, base float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ledgerErr != nil {
		return s.ledgerErr
	}
	b, ok := s.bots[id]
	if !ok {
		return repository.ErrBotNotFound
	}
	b.VirtualQuote = quote
	b.VirtualBase = base
	return nil
}

func (s *fakeStore) UpsertSnapshot(snap *models.BotStatusSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *snap
	s.snapshots[snap.BotID] = &cp
	return nil
}

func (s *fakeStore) snapshot(id string) *models.BotStatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[id]
}

func (s *fakeStore) deleteBot(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bots, id)
}

// fakeExchange - управляемый клиент биржи для тестов ядра
type fakeExchange struct {
	mu sync.Mutex

	candles    []exchange.Candle
	candlesErr error

	account     *exchange.Account
	accountErr  error
	positions   []exchange.Position
	positionErr error

	orderResult *exchange.OrderResult
	orderErr    error

	orders        []exchange.OrderRequest
	leverageCalls []int
}

func (f *fakeExchange) GetCandles(ctx context.Context, interval string, limit int) ([]exchange.Candle, error) {
	if f.candlesErr != nil {
		return nil, f.candlesErr
	}
	return f.candles, nil
}

func (f *fakeExchange) GetAccount(ctx context.Context) (*exchange.Account, error) {
	if f.accountErr != nil {
		return nil, f.accountErr
	}
	if f.account == nil {
		return &exchange.Account{}, nil
	}
	return f.account, nil
}

func (f *fakeExchange) GetPositions(ctx context.Context) ([]exchange.Position, error) {
	if f.positionErr != nil {
		return nil, f.positionErr
	}
	return f.positions, nil
}

func (f *fakeExchange) SetLeverage(ctx context.Context, leverage int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leverageCalls = append(f.leverageCalls, leverage)
	return nil
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	f.orders = append(f.orders, req)
	if f.orderResult != nil {
		return f.orderResult, nil
	}
	return &exchange.OrderResult{OrderID: 1, Status: "FILLED", ExecutedQty: req.Quantity}, nil
}

func (f *fakeExchange) placedOrders() []exchange.OrderRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]exchange.OrderRequest(nil), f.orders...)
}

// candleSeries строит свечи из цен закрытия
func candleSeries(closes ...float64) []exchange.Candle {
	out := make([]exchange.Candle, len(closes))
	for i, c := range closes {
		out[i] = exchange.Candle{Close: c}
	}
	return out
}
