package insights

import (
	"fmt"
	"testing"

	"fininsight/internal/models"
)

func TestMonthOverMonthThreshold(t *testing.T) {
	tests := []struct {
		name         string
		current      float64
		wantInsight  bool
		wantSeverity models.Severity
		wantPriority models.Priority
	}{
		{"just under threshold", 124.99, false, "", ""},
		{"exactly at threshold", 125, true, models.SeverityWarning, models.PriorityMedium},
		{"large increase", 150, true, models.SeverityWarning, models.PriorityHigh},
		{"large decrease", 50, true, models.SeverityPositive, models.PriorityHigh},
		{"small decrease", 80, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{
				Transactions: []models.Transaction{
					expense(t, "p1", "2024-05-10", 100, "food", "Market"),
					expense(t, "c1", "2024-06-05", tt.current, "food", "Market"),
				},
				Categories: []models.Category{{ID: "food", Name: "Food"}},
			}
			got := monthOverMonthChanges(newDataset(snap, testNow))

			if !tt.wantInsight {
				if len(got) != 0 {
					t.Fatalf("expected no insight, got %v", ids(got))
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("expected one insight, got %d", len(got))
			}
			in := got[0]
			if in.ID != "spending-pattern-mom-food-2024-06" {
				t.Errorf("ID = %q", in.ID)
			}
			if in.Severity != tt.wantSeverity || in.Priority != tt.wantPriority {
				t.Errorf("severity/priority = %s/%s, want %s/%s", in.Severity, in.Priority, tt.wantSeverity, tt.wantPriority)
			}
			if in.ExpiresAt == nil || !in.ExpiresAt.Equal(testNow.AddDate(0, 0, 7)) {
				t.Errorf("ExpiresAt = %v, want now+7d", in.ExpiresAt)
			}
		})
	}
}

func TestMonthOverMonthNeedsPreviousMonth(t *testing.T) {
	snap := Snapshot{
		Transactions: []models.Transaction{
			expense(t, "c1", "2024-06-05", 500, "food", "Market"),
		},
	}
	if got := monthOverMonthChanges(newDataset(snap, testNow)); len(got) != 0 {
		t.Errorf("expected no insight without a previous month, got %v", ids(got))
	}
}

func TestWeekendSpending(t *testing.T) {
	// June 3-7 2024 are Monday-Friday, June 8-9 the weekend
	txns := []models.Transaction{
		expense(t, "", "2024-06-08", 100, "fun", "Bar"),
		expense(t, "", "2024-06-09", 100, "fun", "Bar"),
	}
	for d := 3; d <= 7; d++ {
		txns = append(txns, expense(t, "", fmt.Sprintf("2024-06-%02d", d), 20, "food", "Cafe"))
	}

	in := weekendSpending(newDataset(Snapshot{Transactions: txns}, testNow))
	if in == nil {
		t.Fatal("expected weekend insight")
	}
	if in.ID != "spending-pattern-weekend" || in.Priority != models.PriorityLow {
		t.Errorf("unexpected insight: %s %s", in.ID, in.Priority)
	}
	if in.ExpiresAt == nil || !in.ExpiresAt.Equal(testNow.AddDate(0, 0, 30)) {
		t.Errorf("ExpiresAt = %v, want now+30d", in.ExpiresAt)
	}

	var weekdaysOnly []models.Transaction
	for d := 3; d <= 7; d++ {
		weekdaysOnly = append(weekdaysOnly, expense(t, "", fmt.Sprintf("2024-06-%02d", d), 20, "food", "Cafe"))
	}
	if in := weekendSpending(newDataset(Snapshot{Transactions: weekdaysOnly}, testNow)); in != nil {
		t.Errorf("expected no insight, got %s", in.ID)
	}
}

func TestFrequentSmallCharges(t *testing.T) {
	build := func(n int) []models.Transaction {
		var txns []models.Transaction
		for i := 0; i < n; i++ {
			txns = append(txns, expense(t, "", fmt.Sprintf("2024-06-%02d", i+1), 5, "coffee", "Corner Cafe"))
		}
		return txns
	}

	got := frequentSmallCharges(newDataset(Snapshot{Transactions: build(10)}, testNow))
	if len(got) != 1 {
		t.Fatalf("expected one insight, got %d", len(got))
	}
	in := got[0]
	if in.ID != "spending-pattern-small-corner-cafe" {
		t.Errorf("ID = %q", in.ID)
	}
	if in.Priority != models.PriorityMedium || !in.Actionable {
		t.Errorf("unexpected priority/actionable: %s %v", in.Priority, in.Actionable)
	}
	if len(in.Actions) != 1 || in.Actions[0].Kind() != models.ActionCreateBudget {
		t.Errorf("expected create-budget action, got %+v", in.Actions)
	}

	if got := frequentSmallCharges(newDataset(Snapshot{Transactions: build(9)}, testNow)); len(got) != 0 {
		t.Errorf("expected no insight for 9 purchases, got %v", ids(got))
	}
}
