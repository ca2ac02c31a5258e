package bot

import (
	"testing"

	"trendbot/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from models.Status
		to   models.Status
		want bool
	}{
		{"disabled to running", models.StatusDisabled, models.StatusRunning, true},
		{"running to blocked", models.StatusRunning, models.StatusBlocked, true},
		{"running to error", models.StatusRunning, models.StatusError, true},
		{"error recovers to running", models.StatusError, models.StatusRunning, true},
		{"blocked back to running", models.StatusBlocked, models.StatusRunning, true},
		{"blocked tick may fail", models.StatusBlocked, models.StatusError, true},
		{"disabled tick may fail", models.StatusDisabled, models.StatusError, true},
		{"disabled to blocked denied", models.StatusDisabled, models.StatusBlocked, false},
		{"same status allowed", models.StatusRunning, models.StatusRunning, true},
		{"unknown status denied", models.Status("UNKNOWN"), models.StatusRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTrading(t *testing.T) {
	if IsTrading(models.StatusDisabled) {
		t.Error("disabled bot must not trade")
	}
	if IsTrading(models.StatusBlocked) {
		t.Error("blocked bot must not trade")
	}
	if !IsTrading(models.StatusRunning) {
		t.Error("running bot must trade")
	}
	if !IsTrading(models.StatusError) {
		t.Error("error status is transient, next tick may trade")
	}
}
