package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter - взвешенный rate limiter для контроля частоты запросов к API биржи
//
// Биржи считают лимиты в "весах" запросов, а не в их количестве:
// тяжёлые запросы (история свечей, аккаунт) стоят больше лёгких.
// Токен-бакет наполняется weight-units в секунду с ёмкостью burst.
//
// Использование:
//
//	limiter := New(20, 40)                  // 20 weight/sec, burst 40
//	err := limiter.WaitN(ctx, candlesWeight) // блокирующее ожидание
type Limiter struct {
	bucket *rate.Limiter
}

// New создаёт limiter с заданной скоростью пополнения и burst ёмкостью
func New(perSecond float64, burst int) *Limiter {
	if perSecond <= 0 {
		perSecond = 20
	}
	if burst <= 0 {
		burst = int(perSecond) * 2
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// WaitN блокирует до накопления weight токенов или отмены контекста
func (l *Limiter) WaitN(ctx context.Context, weight int) error {
	if weight <= 0 {
		weight = 1
	}
	return l.bucket.WaitN(ctx, weight)
}

// AllowN сообщает, доступны ли weight токенов прямо сейчас (без ожидания)
func (l *Limiter) AllowN(weight int) bool {
	if weight <= 0 {
		weight = 1
	}
	return l.bucket.AllowN(time.Now(), weight)
}
