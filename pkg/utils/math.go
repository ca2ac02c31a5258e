package utils

import "math"

// FloorToStep округляет количество вниз до шага лота биржи
//
// Пример: FloorToStep(0.123456, 0.001) = 0.123
// Округление всегда вниз - ордер не должен превышать рассчитанный объём.
func FloorToStep(qty, step float64) float64 {
	if step <= 0 {
		return qty
	}
	// Эпсилон компенсирует двоичное представление шага: 0.5/0.001
	// дает 499.9999..., а не 500
	steps := math.Floor(qty/step + 1e-9)
	// Повторное округление убирает артефакты плавающей точки (0.30000000000000004)
	digits := decimalsOf(step)
	return RoundTo(steps*step, digits)
}

// RoundTo округляет значение до заданного числа знаков после запятой
func RoundTo(v float64, digits int) float64 {
	pow := math.Pow(10, float64(digits))
	return math.Round(v*pow) / pow
}

// PnlPercent возвращает процентное изменение от entry к mark
//
// Для long позиции знак совпадает с направлением цены,
// для short вызывающий код инвертирует знак.
func PnlPercent(entry, mark float64) float64 {
	if entry == 0 {
		return 0
	}
	return (mark - entry) / entry * 100
}

// decimalsOf возвращает число значащих десятичных знаков шага (максимум 8)
func decimalsOf(step float64) int {
	for d := 0; d <= 8; d++ {
		scaled := step * math.Pow(10, float64(d))
		if math.Abs(scaled-math.Round(scaled)) < 1e-9 {
			return d
		}
	}
	return 8
}
