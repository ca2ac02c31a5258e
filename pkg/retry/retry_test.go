package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelayGrowsExponentially(t *testing.T) {
	cfg := Config{
		InitialDelay: time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0, // без jitter задержки детерминированы
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
		{6, 60 * time.Second}, // упирается в потолок
		{10, 60 * time.Second},
	}

	for _, tt := range tests {
		if got := cfg.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDelayJitterStaysInBounds(t *testing.T) {
	cfg := TickBackoffConfig()

	for attempt := 0; attempt < 10; attempt++ {
		for i := 0; i < 50; i++ {
			d := cfg.Delay(attempt)
			if d < 0 {
				t.Fatalf("Delay(%d) = %v, negative delay", attempt, d)
			}
			// MaxDelay 60s + jitter 10% максимум
			if d > 66*time.Second {
				t.Fatalf("Delay(%d) = %v, above jittered ceiling", attempt, d)
			}
		}
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	op := func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	}

	cfg := Config{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		Multiplier:   1,
	}

	if err := Do(context.Background(), op, cfg); err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	wantErr := errors.New("permanent")
	calls := 0

	cfg := Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		Multiplier:   1,
	}

	err := Do(context.Background(), func() error {
		calls++
		return wantErr
	}, cfg)

	if !errors.Is(err, wantErr) {
		t.Errorf("error = %v, want %v", err, wantErr)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoRespectsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func() error { return errors.New("never succeeds") }, Config{
		MaxRetries:   10,
		InitialDelay: time.Hour,
	})

	if err == nil {
		t.Fatal("Do() expected error with cancelled context")
	}
}

func TestDoCallsOnRetry(t *testing.T) {
	var notified int

	cfg := Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		Multiplier:   1,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			notified++
		},
	}

	_ = Do(context.Background(), func() error { return errors.New("fail") }, cfg)

	// Две паузы между тремя попытками
	if notified != 2 {
		t.Errorf("OnRetry called %d times, want 2", notified)
	}
}
