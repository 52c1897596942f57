package insights

import (
	"math"
	"testing"

	"fininsight/internal/models"
)

func TestDetectRecurringClassification(t *testing.T) {
	tests := []struct {
		name      string
		amounts   []float64
		recurring bool
	}{
		{"stable amounts", []float64{100, 101, 99}, true},
		{"volatile amounts", []float64{100, 150, 50}, false},
		{"too few", []float64{100, 100}, false},
		{"zero mean", []float64{0, 0, 0}, false},
	}

	dates := []string{"2024-01-05", "2024-02-05", "2024-03-05", "2024-04-05"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var txns []models.Transaction
			for i, a := range tt.amounts {
				txns = append(txns, expense(t, "", dates[i], a, "subs", "Acme"))
			}
			got := DetectRecurring(txns)
			if tt.recurring && len(got) != 1 {
				t.Fatalf("expected one candidate, got %d", len(got))
			}
			if !tt.recurring && len(got) != 0 {
				t.Fatalf("expected no candidates, got %+v", got)
			}
		})
	}
}

func TestDetectRecurringSortsInternally(t *testing.T) {
	txns := []models.Transaction{
		expense(t, "", "2024-02-01", 15, "gym", "Gym"),
		expense(t, "", "2024-04-01", 15, "gym", "Gym"),
		expense(t, "", "2024-01-01", 15, "gym", "Gym"),
		expense(t, "", "2024-03-01", 15, "gym", "Gym"),
	}

	got := DetectRecurring(txns)
	if len(got) != 1 {
		t.Fatalf("expected one candidate, got %d", len(got))
	}
	c := got[0]
	if !c.LastDate.Equal(day(t, "2024-04-01")) {
		t.Errorf("LastDate = %v, want 2024-04-01", c.LastDate)
	}
	if c.Count != 4 || math.Abs(c.Frequency-4.0/3.0) > 1e-9 {
		t.Errorf("unexpected count/frequency: %d / %v", c.Count, c.Frequency)
	}
	if c.Amount != 15 || c.CategoryID != "gym" {
		t.Errorf("unexpected candidate: %+v", c)
	}
}

func TestDetectRecurringSkipsMissingMerchant(t *testing.T) {
	txns := []models.Transaction{
		expense(t, "", "2024-01-01", 10, "misc", ""),
		expense(t, "", "2024-02-01", 10, "misc", "  "),
		expense(t, "", "2024-03-01", 10, "misc", ""),
	}
	if got := DetectRecurring(txns); len(got) != 0 {
		t.Errorf("expected no candidates, got %+v", got)
	}
	if got := DetectRecurring(nil); len(got) != 0 {
		t.Errorf("expected no candidates for empty input, got %+v", got)
	}
}
