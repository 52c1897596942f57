package insights

import (
	"math"
	"sort"

	"fininsight/internal/models"
)

const (
	minRecurringOccurrences = 3
	maxRecurringVariation   = 0.15
	// occurrences are reported per 3-month reference window
	recurrenceWindowMonths = 3.0
)

// DetectRecurring groups transactions by merchant and returns one candidate
// per group whose amounts are stable enough to look like a repeating charge.
// Transactions are sorted by date internally, so input order does not matter.
// Candidates are returned ordered by merchant name.
func DetectRecurring(transactions []models.Transaction) []models.RecurringCandidate {
	groups := models.NewTransactionSet(transactions).SortByDateDesc().GroupByMerchant()

	merchants := make([]string, 0, len(groups))
	for name := range groups {
		merchants = append(merchants, name)
	}
	sort.Strings(merchants)

	var candidates []models.RecurringCandidate
	for _, name := range merchants {
		txns := groups[name].Transactions
		if len(txns) < minRecurringOccurrences {
			continue
		}

		mean, stddev := meanStdDev(txns)
		if mean == 0 {
			continue
		}
		variation := stddev / mean
		if variation >= maxRecurringVariation {
			continue
		}

		candidates = append(candidates, models.RecurringCandidate{
			Merchant:   name,
			CategoryID: txns[0].CategoryID,
			Amount:     mean,
			Frequency:  float64(len(txns)) / recurrenceWindowMonths,
			Count:      len(txns),
			LastDate:   txns[0].Date,
			Variation:  variation,
		})
	}
	return candidates
}

// meanStdDev returns the mean and population standard deviation of amounts
func meanStdDev(txns []models.Transaction) (float64, float64) {
	if len(txns) == 0 {
		return 0, 0
	}
	var sum float64
	for _, t := range txns {
		sum += t.Amount
	}
	mean := sum / float64(len(txns))

	var sumSq float64
	for _, t := range txns {
		diff := t.Amount - mean
		sumSq += diff * diff
	}
	return mean, math.Sqrt(sumSq / float64(len(txns)))
}
