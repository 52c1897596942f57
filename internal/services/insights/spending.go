package insights

import (
	"fmt"
	"math"
	"sort"
	"time"

	"fininsight/internal/models"
	"fininsight/internal/services/metrics"
)

const (
	momChangeThreshold    = 25.0
	momHighThreshold      = 50.0
	weekendExcessRatio    = 1.3
	smallChargeMin        = 2.0
	smallChargeMax        = 20.0
	smallChargeMinCount   = 10
	smallChargeMinMonthly = 50.0
)

func analyzeSpendingPatterns(d *dataset) []models.Insight {
	var out []models.Insight
	out = append(out, monthOverMonthChanges(d)...)
	if in := weekendSpending(d); in != nil {
		out = append(out, *in)
	}
	out = append(out, frequentSmallCharges(d)...)
	return out
}

// monthOverMonthChanges compares each category's spend in the calendar month
// of now against the month before
func monthOverMonthChanges(d *dataset) []models.Insight {
	currentMonth := models.MonthKey(d.now)
	previousMonth := models.MonthKey(time.Date(d.now.Year(), d.now.Month()-1, 1, 0, 0, 0, 0, d.now.Location()))

	current := metrics.CategoryMonthTotals(d.all, currentMonth)
	previous := metrics.CategoryMonthTotals(d.all, previousMonth)

	categories := make([]string, 0, len(previous))
	for id, total := range previous {
		if total > 0 {
			categories = append(categories, id)
		}
	}
	sort.Strings(categories)

	var out []models.Insight
	for _, id := range categories {
		change := metrics.PercentChange(current[id], previous[id])
		if math.Abs(change) < momChangeThreshold {
			continue
		}

		name := d.categoryName(id)
		severity := models.SeverityPositive
		title := fmt.Sprintf("%s spending down %.0f%%", name, math.Abs(change))
		desc := fmt.Sprintf("You spent $%.2f on %s this month compared to $%.2f last month.", current[id], name, previous[id])
		if change > 0 {
			severity = models.SeverityWarning
			title = fmt.Sprintf("%s spending up %.0f%%", name, change)
		}

		priority := models.PriorityMedium
		if math.Abs(change) >= momHighThreshold {
			priority = models.PriorityHigh
		}

		in := models.Insight{
			ID:          insightID(models.SpendingPattern, "mom", id, currentMonth),
			Type:        models.SpendingPattern,
			Severity:    severity,
			Priority:    priority,
			Title:       title,
			Description: desc,
			Value:       value(percent(change)),
			Metadata: map[string]interface{}{
				"category_id":    id,
				"current_month":  currentMonth,
				"previous_month": previousMonth,
				"current_total":  money(current[id]),
				"previous_total": money(previous[id]),
			},
			CreatedAt: d.now,
			ExpiresAt: expiresIn(d.now, 7),
		}
		if change > 0 {
			in.Actionable = true
			in.Actions = []models.Action{
				models.NewAction("Review "+name+" transactions", models.ReviewTransactionsParams{CategoryID: id}),
			}
		}
		out = append(out, in)
	}
	return out
}

// weekendSpending flags windows where the average weekend day costs at least
// 30% more than the average weekday
func weekendSpending(d *dataset) *models.Insight {
	if d.expenses.Len() == 0 {
		return nil
	}

	var weekendTotal, weekdayTotal float64
	for _, t := range d.expenses.Transactions {
		if t.IsWeekend() {
			weekendTotal += t.Amount
		} else {
			weekdayTotal += t.Amount
		}
	}

	weeks := d.expenses.Len() / 7
	weekendDays := math.Max(float64(weeks*2), 1)
	weekdayDays := math.Max(float64(weeks*5), 1)

	avgWeekend := weekendTotal / weekendDays
	avgWeekday := weekdayTotal / weekdayDays
	if avgWeekday == 0 || avgWeekend < avgWeekday*weekendExcessRatio {
		return nil
	}

	excess := (avgWeekend/avgWeekday - 1) * 100
	return &models.Insight{
		ID:          insightID(models.SpendingPattern, "weekend"),
		Type:        models.SpendingPattern,
		Severity:    models.SeverityNeutral,
		Priority:    models.PriorityLow,
		Title:       "Higher weekend spending",
		Description: fmt.Sprintf("You spend about %.0f%% more per day on weekends than on weekdays.", excess),
		Value:       value(percent(excess)),
		Metadata: map[string]interface{}{
			"weekend_daily_average": money(avgWeekend),
			"weekday_daily_average": money(avgWeekday),
		},
		CreatedAt: d.now,
		ExpiresAt: expiresIn(d.now, 30),
	}
}

// frequentSmallCharges finds merchants with many small purchases that add up
func frequentSmallCharges(d *dataset) []models.Insight {
	var small []models.Transaction
	for _, t := range d.expenses.Transactions {
		if t.Amount > smallChargeMin && t.Amount < smallChargeMax {
			small = append(small, t)
		}
	}
	if len(small) == 0 || d.all.Len() == 0 {
		return nil
	}

	groups := models.NewTransactionSet(small).GroupByMerchant()
	merchants := make([]string, 0, len(groups))
	for name := range groups {
		merchants = append(merchants, name)
	}
	sort.Strings(merchants)

	var out []models.Insight
	for _, merchant := range merchants {
		group := groups[merchant]
		if group.Len() < smallChargeMinCount {
			continue
		}

		total := group.SumAmount()
		monthly := total / float64(d.all.Len()) * 30
		if monthly < smallChargeMinMonthly {
			continue
		}

		categoryID := group.Transactions[0].CategoryID
		out = append(out, models.Insight{
			ID:          insightID(models.SpendingPattern, "small", slug(merchant)),
			Type:        models.SpendingPattern,
			Severity:    models.SeverityNeutral,
			Priority:    models.PriorityMedium,
			Title:       fmt.Sprintf("Frequent small purchases at %s", merchant),
			Description: fmt.Sprintf("%d purchases at %s add up to about $%.2f a month.", group.Len(), merchant, monthly),
			Value:       value(money(monthly)),
			Metadata: map[string]interface{}{
				"merchant": merchant,
				"count":    group.Len(),
				"total":    money(total),
			},
			Actionable: true,
			Actions: []models.Action{
				models.NewAction("Set a budget", models.CreateBudgetParams{CategoryID: categoryID, Amount: money(monthly)}),
			},
			CreatedAt: d.now,
			ExpiresAt: expiresIn(d.now, 14),
		})
	}
	return out
}
