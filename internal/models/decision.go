package models

import "time"

// Signal - направление тренда по пересечению скользящих средних
type Signal string

const (
	SignalLong  Signal = "LONG"  // быстрая средняя выше медленной
	SignalShort Signal = "SHORT" // быстрая средняя ниже медленной
	SignalHold  Signal = "HOLD"  // равенство или недостаточно данных
)

// Action - действие, выбранное риск-движком на тике
type Action string

const (
	ActionBuy   Action = "BUY"
	ActionSell  Action = "SELL"
	ActionClose Action = "CLOSE" // reduce-only закрытие всей позиции
	ActionNone  Action = "NONE"
)

// Reason - причина принятого решения (включая отказы, для аудита)
type Reason string

const (
	ReasonSignalLong     Reason = "SIGNAL_LONG"
	ReasonSignalShort    Reason = "SIGNAL_SHORT"
	ReasonStopLoss       Reason = "STOP_LOSS"
	ReasonTakeProfit     Reason = "TAKE_PROFIT"
	ReasonLossLimitDaily Reason = "LOSS_LIMIT_DAILY"
	ReasonLossLimitTotal Reason = "LOSS_LIMIT_TOTAL"
	ReasonCooldown       Reason = "COOLDOWN"
	ReasonPositionExists Reason = "POSITION_EXISTS"
	ReasonQtyInvalid     Reason = "QTY_INVALID"
	ReasonNoSignal       Reason = "NO_SIGNAL"
)

// Decision представляет решение одного тика
//
// Каждый тик порождает ровно одно решение, включая отказы - запись
// попадает в снапшот статуса и служит журналом аудита.
type Decision struct {
	Action     Action    `json:"action"`
	Reason     Reason    `json:"reason"`
	Quantity   float64   `json:"quantity,omitempty"`
	Price      float64   `json:"price,omitempty"`
	Signal     Signal    `json:"signal"`
	ReduceOnly bool      `json:"reduce_only,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// IsOrder возвращает true, если решение требует исполнения ордера
func (d Decision) IsOrder() bool {
	return d.Action == ActionBuy || d.Action == ActionSell || d.Action == ActionClose
}
