package metrics

import (
	"math"
	"sort"

	"fininsight/internal/models"
)

// Summary holds headline totals for a transaction window
type Summary struct {
	TotalIncome      float64 `json:"total_income"`
	TotalExpenses    float64 `json:"total_expenses"`
	NetSavings       float64 `json:"net_savings"`
	SavingsRate      float64 `json:"savings_rate"` // percent
	TransactionCount int     `json:"transaction_count"`
}

// Summarize computes headline totals from a transaction set
func Summarize(ts *models.TransactionSet) Summary {
	totalIncome := ts.FilterByKind(models.Income).SumAmount()
	totalExpenses := ts.Expenses().SumAmount()
	netSavings := totalIncome - totalExpenses

	var savingsRate float64
	if totalIncome > 0 {
		savingsRate = (netSavings / totalIncome) * 100
	}

	return Summary{
		TotalIncome:      totalIncome,
		TotalExpenses:    totalExpenses,
		NetSavings:       netSavings,
		SavingsRate:      savingsRate,
		TransactionCount: ts.Len(),
	}
}

// CategoryAggregates computes per-category spend over the expense transactions
// of ts, sorted by total descending (ties by category id). Names are taken
// from categories; unknown ids fall back to the id itself.
func CategoryAggregates(ts *models.TransactionSet, categories []models.Category) []models.CategoryAggregate {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	var result []models.CategoryAggregate
	for id, group := range ts.Expenses().GroupByCategory() {
		name, ok := names[id]
		if !ok || name == "" {
			name = id
		}
		total := group.SumAmount()
		count := group.Len()

		var avg float64
		if count > 0 {
			avg = total / float64(count)
		}

		result = append(result, models.CategoryAggregate{
			CategoryID: id,
			Name:       name,
			Total:      total,
			Count:      count,
			Average:    avg,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Total != result[j].Total {
			return result[i].Total > result[j].Total
		}
		return result[i].CategoryID < result[j].CategoryID
	})
	return result
}

// MonthlySamples returns income and expense totals for every month that has
// at least one transaction, in ascending month order
func MonthlySamples(ts *models.TransactionSet) []models.MonthlySample {
	byMonth := ts.GroupByMonth()
	months := ts.Months()

	samples := make([]models.MonthlySample, 0, len(months))
	for _, m := range months {
		group := byMonth[m]
		samples = append(samples, models.MonthlySample{
			Month:    m,
			Income:   group.FilterByKind(models.Income).SumAmount(),
			Expenses: group.Expenses().SumAmount(),
		})
	}
	return samples
}

// MonthTotals returns the income and expense totals for a single month
func MonthTotals(ts *models.TransactionSet, month string) models.MonthlySample {
	group := ts.FilterByMonth(month)
	return models.MonthlySample{
		Month:    month,
		Income:   group.FilterByKind(models.Income).SumAmount(),
		Expenses: group.Expenses().SumAmount(),
	}
}

// CategoryMonthTotals returns expense totals by category for one month
func CategoryMonthTotals(ts *models.TransactionSet, month string) map[string]float64 {
	return ts.Expenses().FilterByMonth(month).CategoryTotals()
}

// PercentChange calculates the percentage change between two values
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return ((current - previous) / math.Abs(previous)) * 100
}
