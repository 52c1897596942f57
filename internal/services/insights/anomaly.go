package insights

import (
	"fmt"
	"sort"

	"fininsight/internal/models"
)

const (
	largeExpenseMultiple = 3.0
	largeExpenseMin      = 200.0
	maxLargeExpenses     = 3
	dailySpikeMultiple   = 2.5
	dailySpikeMin        = 300.0
	expectedChargeDays   = 30.0
	missingChargeGrace   = 5.0
)

func analyzeAnomalies(d *dataset) []models.Insight {
	var out []models.Insight
	out = append(out, largeExpenses(d)...)
	if in := dailySpike(d); in != nil {
		out = append(out, *in)
	}
	out = append(out, missingRecurringCharges(d)...)
	return out
}

func largeExpenses(d *dataset) []models.Insight {
	if d.expenses.Len() == 0 {
		return nil
	}
	mean := d.expenses.SumAmount() / float64(d.expenses.Len())

	var flagged []models.Transaction
	for _, t := range d.expenses.Transactions {
		if t.Amount > mean*largeExpenseMultiple && t.Amount > largeExpenseMin {
			flagged = append(flagged, t)
		}
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		if flagged[i].Amount != flagged[j].Amount {
			return flagged[i].Amount > flagged[j].Amount
		}
		return flagged[i].Date.Before(flagged[j].Date)
	})
	if len(flagged) > maxLargeExpenses {
		flagged = flagged[:maxLargeExpenses]
	}

	out := make([]models.Insight, 0, len(flagged))
	for _, t := range flagged {
		key := t.ID
		if key == "" {
			key = t.DayKey() + "-" + slug(t.Merchant)
		}
		merchant := t.Merchant
		if merchant == "" {
			merchant = d.categoryName(t.CategoryID)
		}

		out = append(out, models.Insight{
			ID:          insightID(models.Anomaly, "transaction", key),
			Type:        models.Anomaly,
			Severity:    models.SeverityWarning,
			Priority:    models.PriorityHigh,
			Title:       fmt.Sprintf("Unusually large expense at %s", merchant),
			Description: fmt.Sprintf("$%.2f on %s is %.1fx your average expense of $%.2f.", t.Amount, t.DayKey(), t.Amount/mean, mean),
			Value:       value(money(t.Amount)),
			Metadata: map[string]interface{}{
				"transaction_id": t.ID,
				"merchant":       t.Merchant,
				"category_id":    t.CategoryID,
				"date":           t.DayKey(),
				"average":        money(mean),
			},
			Actionable: true,
			Actions: []models.Action{
				models.NewAction("Review transaction", models.ReviewTransactionsParams{TransactionID: t.ID, Date: t.DayKey()}),
			},
			CreatedAt: d.now,
			ExpiresAt: expiresIn(d.now, 7),
		})
	}
	return out
}

// dailySpike reports the earliest day whose spend is far above the daily
// mean. Only one spike is reported per run.
func dailySpike(d *dataset) *models.Insight {
	byDay := d.expenses.GroupByDate()
	if len(byDay) == 0 {
		return nil
	}

	days := make([]string, 0, len(byDay))
	totals := make(map[string]float64, len(byDay))
	var sum float64
	for day, g := range byDay {
		days = append(days, day)
		totals[day] = g.SumAmount()
		sum += totals[day]
	}
	sort.Strings(days)
	mean := sum / float64(len(days))

	for _, day := range days {
		total := totals[day]
		if total <= mean*dailySpikeMultiple || total <= dailySpikeMin {
			continue
		}
		return &models.Insight{
			ID:          insightID(models.Anomaly, "daily", day),
			Type:        models.Anomaly,
			Severity:    models.SeverityWarning,
			Priority:    models.PriorityMedium,
			Title:       fmt.Sprintf("Spending spike on %s", day),
			Description: fmt.Sprintf("You spent $%.2f on %s, %.1fx your daily average of $%.2f.", total, day, total/mean, mean),
			Value:       value(money(total)),
			Metadata: map[string]interface{}{
				"date":          day,
				"daily_average": money(mean),
				"transactions":  byDay[day].Len(),
			},
			Actionable: true,
			Actions: []models.Action{
				models.NewAction("Review that day", models.ReviewTransactionsParams{Date: day}),
			},
			CreatedAt: d.now,
			ExpiresAt: expiresIn(d.now, 14),
		}
	}
	return nil
}

func missingRecurringCharges(d *dataset) []models.Insight {
	var out []models.Insight
	for _, c := range d.recurring {
		idle := daysSince(d.now, c.LastDate)
		if idle <= expectedChargeDays+missingChargeGrace {
			continue
		}
		out = append(out, models.Insight{
			ID:          insightID(models.Anomaly, "missing", slug(c.Merchant)),
			Type:        models.Anomaly,
			Severity:    models.SeverityNeutral,
			Priority:    models.PriorityLow,
			Title:       fmt.Sprintf("Expected %s transaction not found", c.Merchant),
			Description: fmt.Sprintf("%s usually charges about $%.2f but nothing was seen since %s.", c.Merchant, c.Amount, c.LastDate.Format("2006-01-02")),
			Value:       value(money(c.Amount)),
			Metadata: map[string]interface{}{
				"merchant":  c.Merchant,
				"last_date": c.LastDate.Format("2006-01-02"),
				"days_idle": int(idle),
			},
			CreatedAt: d.now,
			ExpiresAt: expiresIn(d.now, 7),
		})
	}
	return out
}
