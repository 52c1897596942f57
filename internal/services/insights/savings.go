package insights

import (
	"fmt"
	"sort"

	"fininsight/internal/models"
)

const (
	topCategoryCount      = 3
	reducibleShare        = 0.15
	minCategorySaving     = 50.0
	highCategorySaving    = 200.0
	merchantPriceGap      = 0.20
	minMerchantSaving     = 30.0
	subscriptionMaxAmount = 50.0
	subscriptionMinRate   = 0.9
	subscriptionStaleDays = 60.0
	monthsPerYear         = 12.0
)

func analyzeSavingOpportunities(d *dataset) []models.Insight {
	var out []models.Insight
	out = append(out, topCategoryReductions(d)...)
	out = append(out, merchantComparisons(d)...)
	out = append(out, staleSubscriptions(d)...)
	return out
}

// topCategoryReductions assumes a flat share of the biggest categories could
// be trimmed
func topCategoryReductions(d *dataset) []models.Insight {
	top := d.aggregates
	if len(top) > topCategoryCount {
		top = top[:topCategoryCount]
	}

	var out []models.Insight
	for _, agg := range top {
		potential := money(agg.Total * reducibleShare)
		if potential < minCategorySaving {
			continue
		}

		priority := models.PriorityMedium
		if potential >= highCategorySaving {
			priority = models.PriorityHigh
		}

		suggested := scale(agg.Total, 1-reducibleShare)
		out = append(out, models.Insight{
			ID:          insightID(models.SavingOpportunity, "category", agg.CategoryID),
			Type:        models.SavingOpportunity,
			Severity:    models.SeverityNeutral,
			Priority:    priority,
			Title:       fmt.Sprintf("Save on %s", agg.Name),
			Description: fmt.Sprintf("Cutting %s by 15%% would save about $%.2f.", agg.Name, potential),
			Value:       value(potential),
			Metadata: map[string]interface{}{
				"category_id":      agg.CategoryID,
				"current_spend":    money(agg.Total),
				"suggested_budget": suggested,
			},
			Actionable: true,
			Actions: []models.Action{
				models.NewAction("Set a budget", models.CreateBudgetParams{CategoryID: agg.CategoryID, Amount: suggested}),
			},
			CreatedAt: d.now,
			ExpiresAt: expiresIn(d.now, 30),
		})
	}
	return out
}

type merchantStats struct {
	name    string
	total   float64
	count   int
	average float64
}

// merchantComparisons compares the two biggest merchants of each category
// by average ticket size
func merchantComparisons(d *dataset) []models.Insight {
	byCategory := d.expenses.GroupByCategory()
	categories := make([]string, 0, len(byCategory))
	for id := range byCategory {
		categories = append(categories, id)
	}
	sort.Strings(categories)

	var out []models.Insight
	for _, id := range categories {
		groups := byCategory[id].GroupByMerchant()
		if len(groups) < 2 {
			continue
		}

		stats := make([]merchantStats, 0, len(groups))
		for name, g := range groups {
			total := g.SumAmount()
			stats = append(stats, merchantStats{
				name:    name,
				total:   total,
				count:   g.Len(),
				average: total / float64(g.Len()),
			})
		}
		sort.Slice(stats, func(i, j int) bool {
			if stats[i].total != stats[j].total {
				return stats[i].total > stats[j].total
			}
			return stats[i].name < stats[j].name
		})

		pricier, cheaper := stats[0], stats[1]
		if cheaper.average > pricier.average {
			pricier, cheaper = cheaper, pricier
		}
		if pricier.average == 0 || cheaper.average > pricier.average*(1-merchantPriceGap) {
			continue
		}

		saving := (pricier.average - cheaper.average) * float64(pricier.count)
		if saving < minMerchantSaving {
			continue
		}

		out = append(out, models.Insight{
			ID:       insightID(models.SavingOpportunity, "merchant", id, slug(pricier.name)),
			Type:     models.SavingOpportunity,
			Severity: models.SeverityNeutral,
			Priority: models.PriorityMedium,
			Title:    fmt.Sprintf("%s is cheaper than %s", cheaper.name, pricier.name),
			Description: fmt.Sprintf("Your average %s purchase is $%.2f at %s and $%.2f at %s.",
				d.categoryName(id), pricier.average, pricier.name, cheaper.average, cheaper.name),
			Value: value(money(saving)),
			Metadata: map[string]interface{}{
				"category_id":      id,
				"pricier_merchant": pricier.name,
				"pricier_average":  money(pricier.average),
				"cheaper_merchant": cheaper.name,
				"cheaper_average":  money(cheaper.average),
			},
			Actionable: true,
			Actions: []models.Action{
				models.NewAction("Review "+pricier.name+" purchases", models.ReviewTransactionsParams{CategoryID: id, Merchant: pricier.name}),
			},
			CreatedAt: d.now,
			ExpiresAt: expiresIn(d.now, 30),
		})
	}
	return out
}

// staleSubscriptions flags small regular charges that have not been seen
// for a while, which usually means a forgotten subscription
func staleSubscriptions(d *dataset) []models.Insight {
	var out []models.Insight
	for _, c := range d.recurring {
		if c.Amount >= subscriptionMaxAmount || c.Frequency < subscriptionMinRate {
			continue
		}
		idle := daysSince(d.now, c.LastDate)
		if idle <= subscriptionStaleDays {
			continue
		}

		annual := scale(c.Amount, monthsPerYear)
		out = append(out, models.Insight{
			ID:          insightID(models.SavingOpportunity, "subscription", slug(c.Merchant)),
			Type:        models.SavingOpportunity,
			Severity:    models.SeverityWarning,
			Priority:    models.PriorityHigh,
			Title:       fmt.Sprintf("Unused subscription: %s", c.Merchant),
			Description: fmt.Sprintf("No charge from %s in %.0f days. Cancelling would save about $%.2f a year.", c.Merchant, idle, annual),
			Value:       value(annual),
			Metadata: map[string]interface{}{
				"merchant":  c.Merchant,
				"amount":    money(c.Amount),
				"last_date": c.LastDate.Format("2006-01-02"),
				"frequency": c.Frequency,
			},
			Actionable: true,
			Actions: []models.Action{
				models.NewAction("Cancel subscription", models.CancelSubscriptionParams{Merchant: c.Merchant, Amount: money(c.Amount)}),
			},
			CreatedAt: d.now,
			ExpiresAt: expiresIn(d.now, 30),
		})
	}
	return out
}
