package services

import (
	"errors"
	"testing"

	"vidforge-backend/internal/ai"
)

func TestQuotaTracker_ReservesUntilExhausted(t *testing.T) {
	q := newQuotaTracker()

	// Six uploads fit inside the daily budget (6 * 1600 = 9600).
	for i := 0; i < 6; i++ {
		if err := q.reserve(quotaCostUpload); err != nil {
			t.Fatalf("reserve %d failed: %v", i, err)
		}
	}

	err := q.reserve(quotaCostUpload)
	var rate *ai.RateLimitError
	if !errors.As(err, &rate) {
		t.Fatalf("expected RateLimitError once the budget is spent, got %v", err)
	}

	// Cheap reads still fit in the remainder.
	if err := q.reserve(quotaCostVideosList); err != nil {
		t.Errorf("list reserve should still fit: %v", err)
	}
}

func TestQuotaTracker_Estimate(t *testing.T) {
	q := newQuotaTracker()
	if got := q.estimate(); got != dailyQuotaUnits {
		t.Fatalf("fresh estimate = %d, want %d", got, dailyQuotaUnits)
	}

	q.reserve(quotaCostUpload)
	if got := q.estimate(); got != dailyQuotaUnits-quotaCostUpload {
		t.Errorf("estimate after upload = %d, want %d", got, dailyQuotaUnits-quotaCostUpload)
	}
}

func TestEstimateSpokenSeconds(t *testing.T) {
	tests := []struct {
		name  string
		words int
		want  int
	}{
		{"one minute of speech", 150, 60},
		{"five minutes of speech", 750, 300},
		{"single word floors to a second", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script := ""
			for i := 0; i < tt.words; i++ {
				script += "word "
			}
			if got := estimateSpokenSeconds(script); got != tt.want {
				t.Errorf("estimateSpokenSeconds(%d words) = %d, want %d", tt.words, got, tt.want)
			}
		})
	}
}
