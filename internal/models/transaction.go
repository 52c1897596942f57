package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TransactionKind indicates whether money came in or went out
type TransactionKind string

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

// Valid reports whether k is one of the known kinds
func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

// Transaction is a single financial transaction. Amount is always a positive
// magnitude; Kind carries the direction.
type Transaction struct {
	ID         string          `json:"id"`
	Date       time.Time       `json:"date"`
	Amount     float64         `json:"amount"`
	CategoryID string          `json:"category_id,omitempty"`
	Merchant   string          `json:"merchant,omitempty"`
	Kind       TransactionKind `json:"kind"`

	// Set by the CSV loader only
	SourceFile string `json:"source_file,omitempty"`
	Hash       string `json:"hash,omitempty"`
}

// ComputeHash generates a short hash for duplicate detection
func (t *Transaction) ComputeHash() string {
	dateStr := t.Date.Format("2006-01-02")
	merchant := strings.ToLower(strings.TrimSpace(t.Merchant))
	amount := fmt.Sprintf("%.2f", t.Amount)

	input := fmt.Sprintf("%s|%s|%s|%s", dateStr, merchant, amount, t.Kind)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:8])
}

// MonthKey returns the "2006-01" bucket of the transaction date
func (t *Transaction) MonthKey() string {
	return t.Date.Format("2006-01")
}

// DayKey returns the "2006-01-02" bucket of the transaction date
func (t *Transaction) DayKey() string {
	return t.Date.Format("2006-01-02")
}

// IsWeekend reports whether the transaction fell on a Saturday or Sunday
func (t *Transaction) IsWeekend() bool {
	wd := t.Date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// MonthKey formats any time as a month bucket
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// TransactionSet wraps a slice with filtering/aggregation methods
type TransactionSet struct {
	Transactions []Transaction
}

// NewTransactionSet creates a new TransactionSet from a slice
func NewTransactionSet(transactions []Transaction) *TransactionSet {
	return &TransactionSet{Transactions: transactions}
}

// Len returns the number of transactions
func (ts *TransactionSet) Len() int {
	return len(ts.Transactions)
}

// FilterByKind returns transactions of the specified kind
func (ts *TransactionSet) FilterByKind(kind TransactionKind) *TransactionSet {
	result := &TransactionSet{}
	for _, t := range ts.Transactions {
		if t.Kind == kind {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// Expenses is shorthand for FilterByKind(Expense)
func (ts *TransactionSet) Expenses() *TransactionSet {
	return ts.FilterByKind(Expense)
}

// FilterByDateRange returns transactions within the date range (inclusive)
func (ts *TransactionSet) FilterByDateRange(start, end time.Time) *TransactionSet {
	result := &TransactionSet{}
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 999999999, end.Location())

	for _, t := range ts.Transactions {
		if !t.Date.Before(startDay) && !t.Date.After(endDay) {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// FilterByMonth returns transactions in the given "2006-01" month
func (ts *TransactionSet) FilterByMonth(month string) *TransactionSet {
	result := &TransactionSet{}
	for _, t := range ts.Transactions {
		if t.MonthKey() == month {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// FilterByCategory returns transactions with the given category id
func (ts *TransactionSet) FilterByCategory(categoryID string) *TransactionSet {
	result := &TransactionSet{}
	for _, t := range ts.Transactions {
		if t.CategoryID == categoryID {
			result.Transactions = append(result.Transactions, t)
		}
	}
	return result
}

// SumAmount returns the sum of all transaction amounts
func (ts *TransactionSet) SumAmount() float64 {
	var sum float64
	for _, t := range ts.Transactions {
		sum += t.Amount
	}
	return sum
}

// GroupByMonth groups transactions by month
func (ts *TransactionSet) GroupByMonth() map[string]*TransactionSet {
	result := make(map[string]*TransactionSet)
	for _, t := range ts.Transactions {
		month := t.MonthKey()
		if result[month] == nil {
			result[month] = &TransactionSet{}
		}
		result[month].Transactions = append(result[month].Transactions, t)
	}
	return result
}

// GroupByCategory groups transactions by category id. Transactions without
// a category are grouped under UncategorizedID.
func (ts *TransactionSet) GroupByCategory() map[string]*TransactionSet {
	result := make(map[string]*TransactionSet)
	for _, t := range ts.Transactions {
		cat := t.CategoryID
		if cat == "" {
			cat = UncategorizedID
		}
		if result[cat] == nil {
			result[cat] = &TransactionSet{}
		}
		result[cat].Transactions = append(result[cat].Transactions, t)
	}
	return result
}

// GroupByMerchant groups transactions by trimmed merchant name, skipping
// transactions without one
func (ts *TransactionSet) GroupByMerchant() map[string]*TransactionSet {
	result := make(map[string]*TransactionSet)
	for _, t := range ts.Transactions {
		name := strings.TrimSpace(t.Merchant)
		if name == "" {
			continue
		}
		if result[name] == nil {
			result[name] = &TransactionSet{}
		}
		result[name].Transactions = append(result[name].Transactions, t)
	}
	return result
}

// GroupByDate groups transactions by calendar day
func (ts *TransactionSet) GroupByDate() map[string]*TransactionSet {
	result := make(map[string]*TransactionSet)
	for _, t := range ts.Transactions {
		dateKey := t.DayKey()
		if result[dateKey] == nil {
			result[dateKey] = &TransactionSet{}
		}
		result[dateKey].Transactions = append(result[dateKey].Transactions, t)
	}
	return result
}

// SortByDate sorts transactions by date (ascending)
func (ts *TransactionSet) SortByDate() *TransactionSet {
	sorted := make([]Transaction, len(ts.Transactions))
	copy(sorted, ts.Transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return &TransactionSet{Transactions: sorted}
}

// SortByDateDesc sorts transactions by date (descending)
func (ts *TransactionSet) SortByDateDesc() *TransactionSet {
	sorted := make([]Transaction, len(ts.Transactions))
	copy(sorted, ts.Transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})
	return &TransactionSet{Transactions: sorted}
}

// MinDate returns the earliest transaction date
func (ts *TransactionSet) MinDate() time.Time {
	if len(ts.Transactions) == 0 {
		return time.Time{}
	}
	minDate := ts.Transactions[0].Date
	for _, t := range ts.Transactions[1:] {
		if t.Date.Before(minDate) {
			minDate = t.Date
		}
	}
	return minDate
}

// MaxDate returns the latest transaction date
func (ts *TransactionSet) MaxDate() time.Time {
	if len(ts.Transactions) == 0 {
		return time.Time{}
	}
	maxDate := ts.Transactions[0].Date
	for _, t := range ts.Transactions[1:] {
		if t.Date.After(maxDate) {
			maxDate = t.Date
		}
	}
	return maxDate
}

// Months returns the sorted list of months that have at least one transaction
func (ts *TransactionSet) Months() []string {
	seen := make(map[string]bool)
	for _, t := range ts.Transactions {
		seen[t.MonthKey()] = true
	}

	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// CategoryTotals returns a map of category id -> total amount
func (ts *TransactionSet) CategoryTotals() map[string]float64 {
	result := make(map[string]float64)
	for _, t := range ts.Transactions {
		cat := t.CategoryID
		if cat == "" {
			cat = UncategorizedID
		}
		result[cat] += t.Amount
	}
	return result
}

// Copy creates a shallow copy of the TransactionSet
func (ts *TransactionSet) Copy() *TransactionSet {
	copied := make([]Transaction, len(ts.Transactions))
	copy(copied, ts.Transactions)
	return &TransactionSet{Transactions: copied}
}
