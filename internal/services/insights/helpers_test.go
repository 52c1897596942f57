package insights

import (
	"testing"
	"time"

	"fininsight/internal/models"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

func expense(t *testing.T, id, date string, amount float64, category, merchant string) models.Transaction {
	t.Helper()
	return models.Transaction{
		ID:         id,
		Date:       day(t, date),
		Amount:     amount,
		CategoryID: category,
		Merchant:   merchant,
		Kind:       models.Expense,
	}
}

func income(t *testing.T, id, date string, amount float64) models.Transaction {
	t.Helper()
	return models.Transaction{
		ID:       id,
		Date:     day(t, date),
		Amount:   amount,
		Merchant: "Employer",
		Kind:     models.Income,
	}
}

func findInsight(list []models.Insight, id string) *models.Insight {
	for i := range list {
		if list[i].ID == id {
			return &list[i]
		}
	}
	return nil
}

func ids(list []models.Insight) []string {
	out := make([]string, len(list))
	for i, in := range list {
		out[i] = in.ID
	}
	return out
}
