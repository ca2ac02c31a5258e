package bot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"trendbot/internal/credentials"
	"trendbot/internal/exchange"
	"trendbot/internal/models"
	"trendbot/pkg/ratelimit"
)

// ClientFactory строит клиента биржи для конкретного бота
type ClientFactory func(cfg *models.BotConfig) (Exchange, error)

// NewExchangeFactory возвращает фабрику клиентов поверх резолвера ключей
//
// Все клиенты разделяют один weight-бюджет запросов и общий пул
// соединений процесса.
func NewExchangeFactory(resolver *credentials.Resolver, limiter *ratelimit.Limiter) ClientFactory {
	return func(cfg *models.BotConfig) (Exchange, error) {
		creds, err := resolver.Resolve(cfg.Env)
		if err != nil {
			return nil, err
		}

		return exchange.NewClient(exchange.ClientConfig{
			Market:     cfg.Market,
			Env:        cfg.Env,
			Symbol:     cfg.Symbol(),
			BaseAsset:  cfg.BaseAsset,
			QuoteAsset: cfg.QuoteAsset,
			APIKey:     creds.APIKey,
			APISecret:  creds.APISecret,
			Limiter:    limiter,
		}), nil
	}
}

// SchedulerConfig - параметры планировщика циклов
type SchedulerConfig struct {
	// ReconcileInterval - период сверки запущенных циклов со списком ботов
	ReconcileInterval time.Duration

	// Параметры, передаваемые каждому циклу
	CandleLimit     int
	MinTickInterval time.Duration
	RequestTimeout  time.Duration
}

// runningLoop - запущенный цикл бота
type runningLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler поддерживает соответствие между ботами в хранилище
// и запущенными циклами
//
// Реконсиляция идемпотентна: на каждом проходе для нового бота
// запускается цикл, для удаленного - останавливается. Выключенные боты
// не останавливаются планировщиком: их цикл сам перестает торговать
// и отмечается статусом DISABLED, что позволяет включить бота обратно
// без пересоздания горутины.
type Scheduler struct {
	cfg     SchedulerConfig
	store   Store
	factory ClientFactory
	logger  *zap.Logger

	mu    sync.Mutex
	loops map[string]*runningLoop
	wg    sync.WaitGroup
}

// NewScheduler создает планировщик циклов
func NewScheduler(cfg SchedulerConfig, store Store, factory ClientFactory, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		store:   store,
		factory: factory,
		logger:  logger,
		loops:   make(map[string]*runningLoop),
	}
}

// Run выполняет реконсиляцию по таймеру до отмены контекста
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started",
		zap.Duration("reconcile_interval", s.cfg.ReconcileInterval))

	s.Reconcile(ctx)

	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.StopAll()
			return
		case <-ticker.C:
			s.Reconcile(ctx)
		}
	}
}

// Reconcile сверяет запущенные циклы со списком ботов в хранилище
func (s *Scheduler) Reconcile(ctx context.Context) {
	bots, err := s.store.ListBots()
	if err != nil {
		s.logger.Error("reconcile: list bots failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	known := make(map[string]bool, len(bots))
	for _, cfg := range bots {
		known[cfg.ID] = true

		if rl, ok := s.loops[cfg.ID]; ok {
			// Цикл мог завершиться сам (бот удален во время тика)
			select {
			case <-rl.done:
				delete(s.loops, cfg.ID)
			default:
				continue
			}
		}

		if !cfg.Enabled {
			// Выключенные боты не получают цикл, пока их не включат.
			// Снапшот DISABLED пишется здесь, чтобы наблюдатели видели
			// бота даже без запущенного цикла.
			s.markDisabled(cfg)
			continue
		}

		s.startLoop(ctx, cfg)
	}

	// Циклы ботов, исчезнувших из хранилища, останавливаются явно
	for id, rl := range s.loops {
		if !known[id] {
			s.logger.Info("stopping loop of deleted bot", zap.String("bot_id", id))
			rl.cancel()
			delete(s.loops, id)
		}
	}

	ActiveLoops.Set(float64(len(s.loops)))
}

// markDisabled записывает снапшот DISABLED для бота без цикла
func (s *Scheduler) markDisabled(cfg *models.BotConfig) {
	err := s.store.UpsertSnapshot(&models.BotStatusSnapshot{
		BotID:     cfg.ID,
		Status:    models.StatusDisabled,
		Config:    cfg,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		s.logger.Warn("snapshot persist failed",
			zap.String("bot_id", cfg.ID),
			zap.Error(err))
	}
	RecordStatus(cfg.ID, string(models.StatusDisabled))
}

// startLoop запускает цикл бота, вызывается под mu
func (s *Scheduler) startLoop(ctx context.Context, cfg *models.BotConfig) {
	client, err := s.factory(cfg)
	if err != nil {
		s.logger.Warn("cannot start bot loop",
			zap.String("bot_id", cfg.ID),
			zap.String("bot_name", cfg.Name),
			zap.Error(err))
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	rl := &runningLoop{cancel: cancel, done: make(chan struct{})}
	s.loops[cfg.ID] = rl

	loop := NewLoop(LoopConfig{
		BotID:           cfg.ID,
		CandleLimit:     s.cfg.CandleLimit,
		MinTickInterval: s.cfg.MinTickInterval,
		RequestTimeout:  s.cfg.RequestTimeout,
	}, s.store, client, s.logger)

	s.logger.Info("starting bot loop",
		zap.String("bot_id", cfg.ID),
		zap.String("bot_name", cfg.Name),
		zap.String("symbol", cfg.Symbol()),
		zap.Bool("dry_run", cfg.DryRun))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(rl.done)
		loop.Run(loopCtx)
	}()
}

// StopAll останавливает все циклы и ждет их завершения
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	for id, rl := range s.loops {
		rl.cancel()
		delete(s.loops, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	ActiveLoops.Set(0)
	s.logger.Info("all bot loops stopped")
}

// LoopCount возвращает количество запущенных циклов
func (s *Scheduler) LoopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loops)
}
