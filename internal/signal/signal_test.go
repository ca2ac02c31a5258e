package signal

import (
	"math"
	"testing"

	"trendbot/internal/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeCrossover(t *testing.T) {
	tests := []struct {
		name     string
		closes   []float64
		fast     int
		slow     int
		wantFast float64
		wantSlow float64
		want     models.Signal
	}{
		{
			name:   "uptrend gives long",
			closes: []float64{1, 2, 3, 100},
			fast:   2, slow: 3,
			wantFast: 51.5,
			wantSlow: 35,
			want:     models.SignalLong,
		},
		{
			name:   "downtrend gives short",
			closes: []float64{100, 3, 2, 1},
			fast:   2, slow: 3,
			wantFast: 1.5,
			wantSlow: 2,
			want:     models.SignalShort,
		},
		{
			name:   "flat prices give hold",
			closes: []float64{5, 5, 5, 5, 5},
			fast:   2, slow: 4,
			wantFast: 5,
			wantSlow: 5,
			want:     models.SignalHold,
		},
		{
			name:   "window is taken from the tail",
			closes: []float64{1000, 1000, 1, 2, 3, 100},
			fast:   2, slow: 3,
			wantFast: 51.5,
			wantSlow: 35,
			want:     models.SignalLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.closes, tt.fast, tt.slow)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if !almostEqual(got.Fast, tt.wantFast) {
				t.Errorf("Fast = %v, want %v", got.Fast, tt.wantFast)
			}
			if !almostEqual(got.Slow, tt.wantSlow) {
				t.Errorf("Slow = %v, want %v", got.Slow, tt.wantSlow)
			}
			if got.Signal != tt.want {
				t.Errorf("Signal = %v, want %v", got.Signal, tt.want)
			}
		})
	}
}

func TestComputeInsufficientHistory(t *testing.T) {
	got, err := Compute([]float64{1, 2}, 2, 3)
	if err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
	if got.Signal != models.SignalHold {
		t.Errorf("Signal = %v, want HOLD on insufficient history", got.Signal)
	}
	if got.Fast != 0 || got.Slow != 0 {
		t.Errorf("averages should stay zero on insufficient history, got fast=%v slow=%v", got.Fast, got.Slow)
	}
}

func TestComputeInvalidPeriods(t *testing.T) {
	tests := []struct {
		name string
		fast int
		slow int
	}{
		{"fast equals slow", 3, 3},
		{"fast above slow", 5, 3},
		{"zero fast", 0, 3},
		{"slow below two", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compute([]float64{1, 2, 3, 4}, tt.fast, tt.slow); err == nil {
				t.Errorf("Compute(fast=%d, slow=%d) expected error", tt.fast, tt.slow)
			}
		})
	}
}
