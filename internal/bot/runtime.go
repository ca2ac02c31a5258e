package bot

import "time"

// RuntimeState - состояние цикла бота, живущее только в памяти
//
// Принадлежит горутине цикла и не требует синхронизации. При рестарте
// процесса состояние обнуляется: накопленные убытки и кулдаун начинаются
// заново, источником правды по балансам остаётся хранилище.
type RuntimeState struct {
	// Tick - номер текущего тика, растет монотонно с момента старта цикла
	Tick int

	// LastOrderTick - номер тика последнего размещенного ордера, -1 если не было
	LastOrderTick int

	// DailyLoss / TotalLoss - накопленный реализованный убыток в котируемой валюте
	DailyLoss float64
	TotalLoss float64

	// DailyResetAt - момент следующего сброса дневного счетчика,
	// ровно 24 часа от предыдущего сброса
	DailyResetAt time.Time

	// EntryPrice - цена входа текущей позиции, если она известна циклу.
	// Нужна для стоп-лосса в dry-run режиме, где биржа позицию не видит.
	// После рестарта процесса цена входа теряется и стоп-лосс по такой
	// позиции не работает до следующего входа.
	EntryPrice float64

	// ConsecutiveFailures - подряд идущие неудачные тики, управляет backoff'ом
	ConsecutiveFailures int
}

// NewRuntimeState создает начальное состояние цикла
func NewRuntimeState(now time.Time) *RuntimeState {
	return &RuntimeState{
		LastOrderTick: -1,
		DailyResetAt:  now.Add(24 * time.Hour),
	}
}

// BeginTick открывает новый тик и сбрасывает дневной счетчик по расписанию
func (s *RuntimeState) BeginTick(now time.Time) {
	s.Tick++

	if !now.Before(s.DailyResetAt) {
		s.DailyLoss = 0
		s.DailyResetAt = now.Add(24 * time.Hour)
	}
}

// RecordOrder отмечает размещение ордера на текущем тике
func (s *RuntimeState) RecordOrder() {
	s.LastOrderTick = s.Tick
}

// RecordRealized учитывает реализованный PnL закрытия позиции
//
// Убыток попадает в оба счетчика, прибыль их не уменьшает.
func (s *RuntimeState) RecordRealized(pnl float64) {
	if pnl >= 0 {
		return
	}
	s.DailyLoss += -pnl
	s.TotalLoss += -pnl
}

// CooldownElapsed возвращает количество тиков с последнего ордера
//
// Если ордеров ещё не было, возвращает -1.
func (s *RuntimeState) CooldownElapsed() int {
	if s.LastOrderTick < 0 {
		return -1
	}
	return s.Tick - s.LastOrderTick
}
