package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики торгового ядра
// ============================================================

// ============ Счётчики тиков и решений ============

// TicksTotal - количество тиков по ботам и исходам
var TicksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "trendbot",
		Subsystem: "core",
		Name:      "ticks_total",
		Help:      "Total number of bot ticks",
	},
	[]string{"bot", "result"}, // result: ok, error
)

// DecisionsTotal - решения риск-движка по причинам
var DecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "trendbot",
		Subsystem: "core",
		Name:      "decisions_total",
		Help:      "Risk engine decisions by reason",
	},
	[]string{"bot", "action", "reason"},
)

// OrdersTotal - размещенные ордера по режимам исполнения
var OrdersTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "trendbot",
		Subsystem: "core",
		Name:      "orders_total",
		Help:      "Orders placed by execution mode and result",
	},
	[]string{"bot", "mode", "result"}, // mode: dry_run, live; result: success, failed
)

// ============ Латентность ============

// TickLatency - длительность полного тика
var TickLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "trendbot",
		Subsystem: "core",
		Name:      "tick_latency_ms",
		Help:      "Full tick duration in milliseconds",
		Buckets:   []float64{50, 100, 200, 500, 1000, 2000, 5000, 10000},
	},
	[]string{"bot"},
)

// ============ Метрики состояния ============

// BotStatus - текущий статус бота (1 в активной строке, 0 в остальных)
var BotStatus = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "trendbot",
		Subsystem: "core",
		Name:      "bot_status",
		Help:      "Current bot status (1 for the active status label)",
	},
	[]string{"bot", "status"},
)

// ActiveLoops - количество запущенных циклов ботов
var ActiveLoops = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "trendbot",
		Subsystem: "core",
		Name:      "active_loops",
		Help:      "Number of running bot loops",
	},
)

// ============ Метрики риска ============

// RealizedLoss - накопленный реализованный убыток
var RealizedLoss = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "trendbot",
		Subsystem: "risk",
		Name:      "realized_loss_quote",
		Help:      "Accumulated realized loss in quote currency",
	},
	[]string{"bot", "window"}, // window: daily, total
)

// StopLossTriggered - срабатывания стоп-лосса
var StopLossTriggered = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "trendbot",
		Subsystem: "risk",
		Name:      "stop_loss_triggered_total",
		Help:      "Number of stop loss triggers",
	},
	[]string{"bot"},
)

// TakeProfitTriggered - срабатывания тейк-профита
var TakeProfitTriggered = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "trendbot",
		Subsystem: "risk",
		Name:      "take_profit_triggered_total",
		Help:      "Number of take profit triggers",
	},
	[]string{"bot"},
)

// ============ Вспомогательные функции ============

// statusLabels перечисляет все статусы для обнуления неактивных строк
var statusLabels = []string{"DISABLED", "RUNNING", "BLOCKED", "ERROR"}

// RecordStatus обновляет gauge статуса бота
func RecordStatus(bot string, status string) {
	for _, s := range statusLabels {
		v := 0.0
		if s == status {
			v = 1.0
		}
		BotStatus.WithLabelValues(bot, s).Set(v)
	}
}

// RecordDecision записывает решение риск-движка
func RecordDecision(bot, action, reason string) {
	DecisionsTotal.WithLabelValues(bot, action, reason).Inc()
	switch reason {
	case "STOP_LOSS":
		StopLossTriggered.WithLabelValues(bot).Inc()
	case "TAKE_PROFIT":
		TakeProfitTriggered.WithLabelValues(bot).Inc()
	}
}

// RecordLoss обновляет счетчики реализованного убытка
func RecordLoss(bot string, daily, total float64) {
	RealizedLoss.WithLabelValues(bot, "daily").Set(daily)
	RealizedLoss.WithLabelValues(bot, "total").Set(total)
}
