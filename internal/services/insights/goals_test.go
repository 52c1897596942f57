package insights

import (
	"math"
	"testing"

	"fininsight/internal/models"
)

func TestGoalProgress(t *testing.T) {
	tests := []struct {
		name       string
		current    float64
		wantID     string
		actionable bool
	}{
		{"on track", 850, "goal-tracking-on-track-g1", false},
		{"behind", 300, "goal-tracking-behind-g1", true},
		{"in between", 600, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{Goal: &models.Goal{ID: "g1", Name: "Trip", TargetAmount: 1000, CurrentAmount: tt.current}}
			got := analyzeGoals(newDataset(snap, testNow))

			if tt.wantID == "" {
				if len(got) != 0 {
					t.Fatalf("expected no insight, got %v", ids(got))
				}
				return
			}
			if len(got) != 1 || got[0].ID != tt.wantID {
				t.Fatalf("expected %s, got %v", tt.wantID, ids(got))
			}
			if got[0].Actionable != tt.actionable {
				t.Errorf("Actionable = %v, want %v", got[0].Actionable, tt.actionable)
			}
		})
	}
}

func TestGoalBehindContribution(t *testing.T) {
	snap := Snapshot{
		Transactions: []models.Transaction{
			income(t, "i1", "2024-06-01", 3000),
			expense(t, "e1", "2024-06-02", 2700, "rent", "Landlord"),
		},
		Goal: &models.Goal{ID: "g1", Name: "Car", TargetAmount: 1200, CurrentAmount: 300},
	}

	got := analyzeGoals(newDataset(snap, testNow))
	in := findInsight(got, "goal-tracking-behind-g1")
	if in == nil {
		t.Fatalf("missing behind insight in %v", ids(got))
	}
	if in.Metadata["months_to_goal"] != 3.0 {
		t.Errorf("months_to_goal = %v, want 3", in.Metadata["months_to_goal"])
	}
	p, ok := in.Actions[0].Params.(models.AdjustGoalParams)
	if !ok || p.MonthlyContribution != 150 || p.GoalID != "g1" {
		t.Errorf("unexpected action params: %+v", in.Actions[0].Params)
	}

	// savings rate 10% sits between the low and excellent bands
	if findInsight(got, "goal-tracking-savings-rate-low-2024-06") != nil {
		t.Error("10% savings rate should not be flagged as low")
	}
}

func TestSavingsRateBands(t *testing.T) {
	tests := []struct {
		name     string
		expenses float64
		want     []string
	}{
		{"excellent and milestone", 780, []string{"goal-tracking-savings-rate-excellent-2024-06", "goal-tracking-milestone-2024-06"}},
		{"excellent only", 500, []string{"goal-tracking-savings-rate-excellent-2024-06"}},
		{"low", 950, []string{"goal-tracking-savings-rate-low-2024-06"}},
		{"middle", 850, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := Snapshot{
				Transactions: []models.Transaction{
					income(t, "", "2024-06-01", 1000),
					expense(t, "", "2024-06-03", tt.expenses, "food", "Market"),
				},
			}
			got := analyzeGoals(newDataset(snap, testNow))
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, ids(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("insight %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestLowSavingsTarget(t *testing.T) {
	snap := Snapshot{
		Transactions: []models.Transaction{
			income(t, "", "2024-06-01", 1000),
			expense(t, "", "2024-06-03", 950, "food", "Market"),
		},
	}
	got := analyzeGoals(newDataset(snap, testNow))
	if len(got) != 1 {
		t.Fatalf("expected one insight, got %v", ids(got))
	}
	p, ok := got[0].Actions[0].Params.(models.SetSavingsTargetParams)
	if !ok || p.MonthlyAmount != 200 {
		t.Errorf("expected savings target 200, got %+v", got[0].Actions[0].Params)
	}
}

func TestTrendPrediction(t *testing.T) {
	snap := Snapshot{
		Transactions: []models.Transaction{
			income(t, "", "2024-03-01", 2000),
			income(t, "", "2024-04-01", 2000),
			income(t, "", "2024-05-01", 2000),
			expense(t, "", "2024-03-10", 1000, "rent", "Landlord"),
			expense(t, "", "2024-04-10", 1100, "rent", "Landlord"),
			expense(t, "", "2024-05-10", 1200, "rent", "Landlord"),
		},
		Goal: &models.Goal{ID: "g1", Name: "Fund", TargetAmount: 2000, CurrentAmount: 200},
	}

	got := analyzeTrends(newDataset(snap, testNow))
	if len(got) != 3 {
		t.Fatalf("expected 3 insights, got %v", ids(got))
	}

	exp := findInsight(got, "trend-prediction-expenses-2024-06")
	if exp == nil {
		t.Fatalf("missing expense forecast in %v", ids(got))
	}
	if *exp.Value != 1300 || exp.Severity != models.SeverityWarning {
		t.Errorf("expense forecast = %v (%s), want 1300 warning", *exp.Value, exp.Severity)
	}
	if r2, _ := exp.Metadata["r_squared"].(float64); math.Abs(r2-1) > 1e-9 {
		t.Errorf("r_squared = %v, want 1", exp.Metadata["r_squared"])
	}

	inc := findInsight(got, "trend-prediction-income-2024-06")
	if inc == nil || *inc.Value != 2000 || inc.Severity != models.SeverityNeutral {
		t.Errorf("unexpected income forecast: %+v", inc)
	}

	// average net savings is 900, remaining 1800
	goal := findInsight(got, "trend-prediction-goal-g1")
	if goal == nil {
		t.Fatalf("missing goal projection in %v", ids(got))
	}
	if goal.Metadata["completion_date"] != "2024-08-15" {
		t.Errorf("completion_date = %v, want 2024-08-15", goal.Metadata["completion_date"])
	}
}

func TestTrendPredictionNeedsThreeMonths(t *testing.T) {
	snap := Snapshot{
		Transactions: []models.Transaction{
			expense(t, "", "2024-05-10", 1000, "rent", "Landlord"),
			expense(t, "", "2024-06-10", 1100, "rent", "Landlord"),
		},
	}
	if got := analyzeTrends(newDataset(snap, testNow)); len(got) != 0 {
		t.Errorf("expected no trend insights, got %v", ids(got))
	}
}
