// Package signal вычисляет торговый сигнал по скользящим средним.
package signal

import (
	"fmt"

	"trendbot/internal/models"
)

// Result - результат вычисления сигнала на одном тике
type Result struct {
	Fast   float64
	Slow   float64
	Signal models.Signal
}

// Compute вычисляет сигнал по пересечению двух простых скользящих средних
//
// Средние считаются по последним fast и slow ценам закрытия, включая
// текущую незакрытую свечу. Если истории меньше slow свечей, сигнал
// HOLD и средние остаются нулевыми: торговать по неполному окну нельзя.
//
//	fast > slow  -> LONG
//	fast < slow  -> SHORT
//	fast == slow -> HOLD
func Compute(closes []float64, fast, slow int) (Result, error) {
	if fast < 1 || slow < 2 || fast >= slow {
		return Result{}, fmt.Errorf("invalid MA periods: fast=%d slow=%d", fast, slow)
	}

	if len(closes) < slow {
		return Result{Signal: models.SignalHold}, nil
	}

	result := Result{
		Fast: average(closes[len(closes)-fast:]),
		Slow: average(closes[len(closes)-slow:]),
	}

	switch {
	case result.Fast > result.Slow:
		result.Signal = models.SignalLong
	case result.Fast < result.Slow:
		result.Signal = models.SignalShort
	default:
		result.Signal = models.SignalHold
	}

	return result, nil
}

// average считает среднее арифметическое
func average(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
