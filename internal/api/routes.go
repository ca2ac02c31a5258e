package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"trendbot/internal/api/handlers"
	"trendbot/internal/api/middleware"
	"trendbot/internal/repository"
)

// Dependencies содержит зависимости HTTP сервера
type Dependencies struct {
	DB     *sql.DB
	Store  *repository.Store
	Logger *zap.Logger
}

// SetupRoutes настраивает HTTP маршруты процесса
//
// Структура маршрутов:
//
//	/healthz          - проверка живости (включая ping БД)
//	/metrics          - Prometheus метрики
//	/api/v1/
//	  ├── /bots             - список конфигураций ботов
//	  ├── /bots/{id}        - конфигурация бота
//	  ├── /bots/{id}/status - статусный снапшот бота
//	  └── /status           - снапшоты всех ботов
//
// Все маршруты только на чтение: процесс управляется конфигурацией,
// а не HTTP запросами.
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.Logging(deps.Logger))

	botHandler := handlers.NewBotHandler(deps.Store, deps.Logger)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/bots", botHandler.ListBots).Methods("GET")
	api.HandleFunc("/bots/{id}", botHandler.GetBot).Methods("GET")
	api.HandleFunc("/bots/{id}/status", botHandler.GetBotStatus).Methods("GET")
	api.HandleFunc("/status", botHandler.ListStatuses).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := deps.DB.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
