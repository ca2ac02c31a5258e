package bot

import "trendbot/internal/models"

// ValidTransitions определяет допустимые переходы между статусами бота
//
// Error достижим из любого статуса: сбой сети или хранилища случается
// на любом тике.
var ValidTransitions = map[models.Status][]models.Status{
	models.StatusDisabled: {models.StatusRunning, models.StatusError},
	models.StatusRunning:  {models.StatusDisabled, models.StatusBlocked, models.StatusError},
	models.StatusBlocked:  {models.StatusDisabled, models.StatusRunning, models.StatusError}, // Running после сброса лимитов
	models.StatusError:    {models.StatusDisabled, models.StatusRunning, models.StatusBlocked},
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to models.Status) bool {
	if from == to {
		return true
	}
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StatusInfo возвращает описание статуса для снапшота
func StatusInfo(s models.Status) string {
	switch s {
	case models.StatusDisabled:
		return "Бот выключен"
	case models.StatusRunning:
		return "Бот работает"
	case models.StatusBlocked:
		return "Торговля заблокирована лимитом убытка"
	case models.StatusError:
		return "Ошибка последнего тика"
	default:
		return "Неизвестный статус"
	}
}

// IsTrading возвращает true, если в этом статусе разрешено открывать позиции
func IsTrading(s models.Status) bool {
	return s == models.StatusRunning || s == models.StatusError
}
