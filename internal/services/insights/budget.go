package insights

import (
	"fmt"

	"fininsight/internal/models"
)

const (
	overBudgetUtilization  = 1.2
	underBudgetUtilization = 0.5
	underBudgetMinAlloc    = 100.0
	overBudgetFactor       = 1.1
	underBudgetFactor      = 1.2
	missingBudgetMinSpend  = 200.0
	missingBudgetFactor    = 1.1
)

func analyzeBudgets(d *dataset) []models.Insight {
	var out []models.Insight
	budgeted := make(map[string]bool, len(d.budgets))

	for _, b := range d.budgets {
		budgeted[b.CategoryID] = true
		if b.Allocated <= 0 {
			continue
		}

		key := b.ID
		if key == "" {
			key = b.CategoryID
		}
		name := d.categoryName(b.CategoryID)
		utilization := b.Utilization()

		switch {
		case utilization >= overBudgetUtilization:
			suggested := scale(b.Spent, overBudgetFactor)
			out = append(out, models.Insight{
				ID:          insightID(models.BudgetRecommendation, "over", key),
				Type:        models.BudgetRecommendation,
				Severity:    models.SeverityWarning,
				Priority:    models.PriorityHigh,
				Title:       fmt.Sprintf("%s budget is too low", name),
				Description: fmt.Sprintf("You spent $%.2f against a $%.2f budget. Consider raising it to $%.2f.", b.Spent, b.Allocated, suggested),
				Value:       value(suggested),
				Metadata: map[string]interface{}{
					"budget_id":   b.ID,
					"category_id": b.CategoryID,
					"allocated":   money(b.Allocated),
					"spent":       money(b.Spent),
					"utilization": percent(utilization * 100),
				},
				Actionable: true,
				Actions: []models.Action{
					models.NewAction("Raise budget", models.AdjustBudgetParams{BudgetID: b.ID, CategoryID: b.CategoryID, Amount: suggested}),
				},
				CreatedAt: d.now,
				ExpiresAt: expiresIn(d.now, 7),
			})

		case utilization <= underBudgetUtilization && b.Allocated >= underBudgetMinAlloc:
			suggested := scale(b.Spent, underBudgetFactor)
			remaining := money(b.Remaining())
			out = append(out, models.Insight{
				ID:          insightID(models.BudgetRecommendation, "under", key),
				Type:        models.BudgetRecommendation,
				Severity:    models.SeverityNeutral,
				Priority:    models.PriorityMedium,
				Title:       fmt.Sprintf("%s budget is underused", name),
				Description: fmt.Sprintf("Only $%.2f of $%.2f was spent. $%.2f could go elsewhere.", b.Spent, b.Allocated, remaining),
				Value:       value(suggested),
				Metadata: map[string]interface{}{
					"budget_id":   b.ID,
					"category_id": b.CategoryID,
					"allocated":   money(b.Allocated),
					"spent":       money(b.Spent),
					"utilization": percent(utilization * 100),
				},
				Actionable: true,
				Actions: []models.Action{
					models.NewAction("Reallocate unspent money", models.ReallocateBudgetParams{BudgetID: b.ID, CategoryID: b.CategoryID, Available: remaining}),
					models.NewAction("Lower budget", models.AdjustBudgetParams{BudgetID: b.ID, CategoryID: b.CategoryID, Amount: suggested}),
				},
				CreatedAt: d.now,
				ExpiresAt: expiresIn(d.now, 14),
			})
		}
	}

	for _, agg := range d.aggregates {
		if agg.CategoryID == models.UncategorizedID || budgeted[agg.CategoryID] || agg.Total < missingBudgetMinSpend {
			continue
		}
		suggested := scale(agg.Total, missingBudgetFactor)
		out = append(out, models.Insight{
			ID:          insightID(models.BudgetRecommendation, "missing", agg.CategoryID),
			Type:        models.BudgetRecommendation,
			Severity:    models.SeverityNeutral,
			Priority:    models.PriorityMedium,
			Title:       fmt.Sprintf("Create a budget for %s", agg.Name),
			Description: fmt.Sprintf("You spent $%.2f on %s without a budget.", agg.Total, agg.Name),
			Value:       value(suggested),
			Metadata: map[string]interface{}{
				"category_id": agg.CategoryID,
				"spent":       money(agg.Total),
			},
			Actionable: true,
			Actions: []models.Action{
				models.NewAction("Create budget", models.CreateBudgetParams{CategoryID: agg.CategoryID, Amount: suggested}),
			},
			CreatedAt: d.now,
			ExpiresAt: expiresIn(d.now, 30),
		})
	}
	return out
}
