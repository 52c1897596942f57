package insights

import (
	"fmt"
	"math"
	"time"

	"fininsight/internal/models"
)

const (
	goalOnTrackProgress   = 80.0
	goalBehindProgress    = 50.0
	goalCatchUpMonths     = 6.0
	excellentSavingsRate  = 0.20
	lowSavingsRate        = 0.10
	milestoneRateCeiling  = 0.25
	savingsTargetFraction = 0.20
	minTrendMonths        = 3
)

// analyzeGoals looks at the active goal and this month's savings rate
func analyzeGoals(d *dataset) []models.Insight {
	var out []models.Insight
	month := d.currentMonth

	if g := d.goal; g != nil && g.TargetAmount > 0 {
		progress := g.Progress()
		remaining := g.RemainingAmount()

		switch {
		case progress >= goalOnTrackProgress:
			out = append(out, models.Insight{
				ID:          insightID(models.GoalTracking, "on-track", g.ID),
				Type:        models.GoalTracking,
				Severity:    models.SeverityPositive,
				Priority:    models.PriorityLow,
				Title:       fmt.Sprintf("%s is on track", g.Name),
				Description: fmt.Sprintf("You have saved %.0f%% of your $%.2f target.", progress, g.TargetAmount),
				Value:       value(percent(progress)),
				Metadata: map[string]interface{}{
					"goal_id":   g.ID,
					"remaining": money(remaining),
				},
				CreatedAt: d.now,
			})

		case progress < goalBehindProgress:
			monthlySavings := month.Net()
			required := money(remaining / goalCatchUpMonths)

			meta := map[string]interface{}{
				"goal_id":              g.ID,
				"remaining":            money(remaining),
				"monthly_savings":      money(monthlySavings),
				"required_monthly":     required,
				"catch_up_months":      goalCatchUpMonths,
				"months_to_goal":       nil,
				"current_progress_pct": percent(progress),
			}
			desc := fmt.Sprintf("You are %.0f%% of the way to %s. Saving $%.2f a month would close the gap in 6 months.", progress, g.Name, required)
			if monthlySavings > 0 {
				months := math.Ceil(remaining / monthlySavings)
				meta["months_to_goal"] = months
				desc = fmt.Sprintf("At your current rate %s needs %.0f more months. Saving $%.2f a month would close the gap in 6 months.", g.Name, months, required)
			}

			out = append(out, models.Insight{
				ID:          insightID(models.GoalTracking, "behind", g.ID),
				Type:        models.GoalTracking,
				Severity:    models.SeverityWarning,
				Priority:    models.PriorityMedium,
				Title:       fmt.Sprintf("%s is behind schedule", g.Name),
				Description: desc,
				Value:       value(required),
				Metadata:    meta,
				Actionable:  true,
				Actions: []models.Action{
					models.NewAction("Adjust goal", models.AdjustGoalParams{GoalID: g.ID, MonthlyContribution: required}),
				},
				CreatedAt: d.now,
			})
		}
	}

	if month.Income <= 0 {
		return out
	}
	rate := (month.Income - month.Expenses) / month.Income
	ratePct := percent(rate * 100)

	if rate > excellentSavingsRate {
		out = append(out, models.Insight{
			ID:          insightID(models.GoalTracking, "savings-rate", "excellent", month.Month),
			Type:        models.GoalTracking,
			Severity:    models.SeverityPositive,
			Priority:    models.PriorityLow,
			Title:       "Excellent savings rate",
			Description: fmt.Sprintf("You are saving %.1f%% of your income this month.", ratePct),
			Value:       value(ratePct),
			Metadata:    map[string]interface{}{"month": month.Month, "income": money(month.Income), "expenses": money(month.Expenses)},
			CreatedAt:   d.now,
		})
	}
	if rate < lowSavingsRate {
		target := scale(month.Income, savingsTargetFraction)
		out = append(out, models.Insight{
			ID:          insightID(models.GoalTracking, "savings-rate", "low", month.Month),
			Type:        models.GoalTracking,
			Severity:    models.SeverityWarning,
			Priority:    models.PriorityMedium,
			Title:       "Low savings rate",
			Description: fmt.Sprintf("You are saving %.1f%% of your income this month. Aim for $%.2f a month.", ratePct, target),
			Value:       value(ratePct),
			Metadata:    map[string]interface{}{"month": month.Month, "income": money(month.Income), "expenses": money(month.Expenses)},
			Actionable:  true,
			Actions: []models.Action{
				models.NewAction("Set savings target", models.SetSavingsTargetParams{MonthlyAmount: target}),
			},
			CreatedAt: d.now,
		})
	}
	// overlaps with the excellent-rate insight on purpose
	if rate >= excellentSavingsRate && rate < milestoneRateCeiling {
		out = append(out, models.Insight{
			ID:          insightID(models.GoalTracking, "milestone", month.Month),
			Type:        models.GoalTracking,
			Severity:    models.SeverityPositive,
			Priority:    models.PriorityLow,
			Title:       "Savings milestone reached",
			Description: "You crossed a 20% savings rate this month.",
			Value:       value(ratePct),
			Metadata:    map[string]interface{}{"month": month.Month},
			CreatedAt:   d.now,
			ExpiresAt:   expiresIn(d.now, 7),
		})
	}
	return out
}

// analyzeTrends projects next month's income and expenses and, when a goal
// exists, its completion date
func analyzeTrends(d *dataset) []models.Insight {
	if len(d.samples) < minTrendMonths {
		return nil
	}

	expenses := make([]float64, len(d.samples))
	income := make([]float64, len(d.samples))
	var netSum float64
	for i, s := range d.samples {
		expenses[i] = s.Expenses
		income[i] = s.Income
		netSum += s.Net()
	}

	next := nextMonth(d.samples[len(d.samples)-1].Month)
	n := float64(len(d.samples))

	expenseModel := FitTrend(expenses)
	incomeModel := FitTrend(income)
	expected := money(math.Max(expenseModel.Predict(n), 0))
	expectedIncome := money(math.Max(incomeModel.Predict(n), 0))

	expenseSeverity := models.SeverityNeutral
	expenseDirection := "steady"
	if expenseModel.Slope > 0 {
		expenseSeverity = models.SeverityWarning
		expenseDirection = "rising"
	} else if expenseModel.Slope < 0 {
		expenseSeverity = models.SeverityPositive
		expenseDirection = "falling"
	}

	incomeSeverity := models.SeverityNeutral
	if incomeModel.Slope > 0 {
		incomeSeverity = models.SeverityPositive
	} else if incomeModel.Slope < 0 {
		incomeSeverity = models.SeverityWarning
	}

	out := []models.Insight{
		{
			ID:          insightID(models.TrendPrediction, "expenses", next),
			Type:        models.TrendPrediction,
			Severity:    expenseSeverity,
			Priority:    models.PriorityLow,
			Title:       fmt.Sprintf("Expenses are %s", expenseDirection),
			Description: fmt.Sprintf("Based on the last %d months, expect about $%.2f in expenses in %s.", len(d.samples), expected, next),
			Value:       value(expected),
			Metadata:    trendMetadata(expenseModel, next),
			CreatedAt:   d.now,
			ExpiresAt:   expiresIn(d.now, 30),
		},
		{
			ID:          insightID(models.TrendPrediction, "income", next),
			Type:        models.TrendPrediction,
			Severity:    incomeSeverity,
			Priority:    models.PriorityLow,
			Title:       "Income forecast",
			Description: fmt.Sprintf("Based on the last %d months, expect about $%.2f in income in %s.", len(d.samples), expectedIncome, next),
			Value:       value(expectedIncome),
			Metadata:    trendMetadata(incomeModel, next),
			CreatedAt:   d.now,
			ExpiresAt:   expiresIn(d.now, 30),
		},
	}

	avgNet := netSum / n
	if g := d.goal; g != nil && g.RemainingAmount() > 0 && avgNet > 0 {
		months := int(math.Ceil(g.RemainingAmount() / avgNet))
		completion := d.now.AddDate(0, months, 0)
		out = append(out, models.Insight{
			ID:          insightID(models.TrendPrediction, "goal", g.ID),
			Type:        models.TrendPrediction,
			Severity:    models.SeverityPositive,
			Priority:    models.PriorityLow,
			Title:       fmt.Sprintf("%s projected for %s", g.Name, completion.Format("January 2006")),
			Description: fmt.Sprintf("Saving $%.2f a month on average, you will reach %s in about %d months.", avgNet, g.Name, months),
			Value:       value(float64(months)),
			Metadata: map[string]interface{}{
				"goal_id":         g.ID,
				"completion_date": completion.Format("2006-01-02"),
				"average_savings": money(avgNet),
				"remaining":       money(g.RemainingAmount()),
			},
			CreatedAt: d.now,
			ExpiresAt: expiresIn(d.now, 30),
		})
	}
	return out
}

func trendMetadata(m models.TrendModel, next string) map[string]interface{} {
	return map[string]interface{}{
		"slope":      money(m.Slope),
		"intercept":  money(m.Intercept),
		"r_squared":  math.Round(m.RSquared*1000) / 1000,
		"samples":    m.Samples,
		"next_month": next,
	}
}

func nextMonth(month string) string {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return month
	}
	return t.AddDate(0, 1, 0).Format("2006-01")
}
