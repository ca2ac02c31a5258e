package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"trendbot/internal/api"
	"trendbot/internal/bot"
	"trendbot/internal/config"
	"trendbot/internal/credentials"
	"trendbot/internal/exchange"
	"trendbot/internal/repository"
	"trendbot/pkg/ratelimit"
	"trendbot/pkg/utils"
)

func main() {
	// .env не обязателен, переменные окружения имеют приоритет
	_ = godotenv.Load()

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("database connection failed",
			zap.String("dsn", cfg.Database.DSNWithoutPassword()),
			zap.Error(err))
	}
	defer db.Close()

	logger.Info("connected to database",
		zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	store := repository.NewStore(db)

	// Начальная загрузка ботов из YAML (если файл задан)
	if cfg.Scheduler.BotsFile != "" {
		if err := applySeed(cfg.Scheduler.BotsFile, store, logger); err != nil {
			logger.Fatal("seed apply failed", zap.Error(err))
		}
	}

	// Без единого набора API-ключей торговать нечем, падаем сразу
	resolver := credentials.NewResolver(cfg.Security.CredentialsPassphrase)
	if err := resolver.ResolveAny(); err != nil {
		logger.Fatal("no usable API credentials, set TESTNET_API_KEY/SECRET or MAINNET_API_KEY/SECRET",
			zap.Error(err))
	}

	// Общий weight-бюджет запросов к бирже
	limiter := ratelimit.New(cfg.Exchange.RateLimitPerSec, cfg.Exchange.RateLimitBurst)

	// Планировщик циклов ботов
	scheduler := bot.NewScheduler(bot.SchedulerConfig{
		ReconcileInterval: cfg.Scheduler.ReconcileInterval,
		CandleLimit:       cfg.Scheduler.CandleLimit,
		MinTickInterval:   cfg.Scheduler.MinTickInterval,
		RequestTimeout:    cfg.Exchange.RequestTimeout,
	}, store, bot.NewExchangeFactory(resolver, limiter), logger)

	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Run(schedulerCtx)
	}()

	// HTTP сервер: health, метрики, read-only API
	router := api.SetupRoutes(&api.Dependencies{
		DB:     db,
		Store:  store,
		Logger: logger,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting http server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	stopScheduler()
	<-schedulerDone

	exchange.CloseSharedClient()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("http server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

// applySeed добавляет ботов из YAML-файла, которых ещё нет в хранилище
//
// Сопоставление идет по имени: существующие записи не перезаписываются,
// источником правды остаётся БД.
func applySeed(path string, store *repository.Store, logger *zap.Logger) error {
	seeds, err := config.LoadSeed(path)
	if err != nil {
		return err
	}

	for _, seed := range seeds {
		if _, err := store.Bots.GetByName(seed.Name); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrBotNotFound) {
			return err
		}

		botCfg, err := seed.ToBotConfig()
		if err != nil {
			return err
		}
		botCfg.ID = uuid.NewString()

		if err := store.Bots.Create(botCfg); err != nil {
			return fmt.Errorf("create seed bot %q: %w", seed.Name, err)
		}

		logger.Info("seed bot created",
			zap.String("bot_id", botCfg.ID),
			zap.String("bot_name", botCfg.Name),
			zap.String("symbol", botCfg.Symbol()))
	}

	return nil
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Настройка пула соединений
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
