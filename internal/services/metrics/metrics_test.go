package metrics

import (
	"testing"
	"time"

	"fininsight/internal/models"
)

func tx(date string, amount float64, kind models.TransactionKind, category string) models.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return models.Transaction{Date: d, Amount: amount, Kind: kind, CategoryID: category}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		previous float64
		expected float64
	}{
		{"both zero", 0, 0, 0},
		{"from zero", 50, 0, 100},
		{"increase", 125, 100, 25},
		{"decrease", 50, 100, -50},
		{"negative base", -50, -100, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PercentChange(tt.current, tt.previous)
			if got != tt.expected {
				t.Errorf("PercentChange(%v, %v) = %v, want %v", tt.current, tt.previous, got, tt.expected)
			}
		})
	}
}

func TestCategoryAggregates(t *testing.T) {
	ts := models.NewTransactionSet([]models.Transaction{
		tx("2024-01-02", 100, models.Expense, "food"),
		tx("2024-01-03", 50, models.Expense, "food"),
		tx("2024-01-04", 300, models.Expense, "rent"),
		tx("2024-01-05", 20, models.Expense, ""),
		tx("2024-01-06", 5000, models.Income, "salary"),
	})
	cats := []models.Category{{ID: "food", Name: "Food"}, {ID: "rent", Name: "Rent"}}

	aggs := CategoryAggregates(ts, cats)
	if len(aggs) != 3 {
		t.Fatalf("expected 3 aggregates, got %d", len(aggs))
	}

	if aggs[0].CategoryID != "rent" || aggs[0].Total != 300 {
		t.Errorf("expected rent first with 300, got %+v", aggs[0])
	}
	if aggs[1].Name != "Food" || aggs[1].Count != 2 || aggs[1].Average != 75 {
		t.Errorf("unexpected food aggregate: %+v", aggs[1])
	}
	if aggs[2].CategoryID != models.UncategorizedID || aggs[2].Name != models.UncategorizedID {
		t.Errorf("expected uncategorized fallback, got %+v", aggs[2])
	}
}

func TestMonthlySamples(t *testing.T) {
	ts := models.NewTransactionSet([]models.Transaction{
		tx("2024-02-10", 200, models.Expense, "food"),
		tx("2024-01-02", 1000, models.Income, ""),
		tx("2024-01-03", 400, models.Expense, "food"),
		tx("2024-02-01", 1100, models.Income, ""),
	})

	samples := MonthlySamples(ts)
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].Month != "2024-01" || samples[0].Income != 1000 || samples[0].Expenses != 400 {
		t.Errorf("unexpected January sample: %+v", samples[0])
	}
	if samples[1].Net() != 900 {
		t.Errorf("expected February net 900, got %v", samples[1].Net())
	}
}

func TestMonthTotalsAndCategoryMonthTotals(t *testing.T) {
	ts := models.NewTransactionSet([]models.Transaction{
		tx("2024-03-01", 2000, models.Income, ""),
		tx("2024-03-02", 30, models.Expense, "food"),
		tx("2024-03-09", 70, models.Expense, "food"),
		tx("2024-04-01", 99, models.Expense, "food"),
	})

	m := MonthTotals(ts, "2024-03")
	if m.Income != 2000 || m.Expenses != 100 {
		t.Errorf("unexpected month totals: %+v", m)
	}

	cats := CategoryMonthTotals(ts, "2024-03")
	if cats["food"] != 100 {
		t.Errorf("expected food 100, got %v", cats["food"])
	}
	if _, ok := cats[""]; ok {
		t.Error("income should not appear in category totals")
	}
}

func TestSummarize(t *testing.T) {
	ts := models.NewTransactionSet([]models.Transaction{
		tx("2024-03-01", 1000, models.Income, ""),
		tx("2024-03-02", 250, models.Expense, "food"),
	})

	s := Summarize(ts)
	if s.NetSavings != 750 || s.SavingsRate != 75 || s.TransactionCount != 2 {
		t.Errorf("unexpected summary: %+v", s)
	}

	empty := Summarize(models.NewTransactionSet(nil))
	if empty.SavingsRate != 0 {
		t.Errorf("expected zero savings rate for empty set, got %v", empty.SavingsRate)
	}
}
