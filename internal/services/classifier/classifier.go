// Package classifier decides the kind of bank rows that arrive without one.
package classifier

import (
	"strings"

	"fininsight/internal/models"
)

// Rules holds lowercase substrings matched against a row's description and
// category
type Rules struct {
	Income     []string // description hints for money coming in
	IncomeCats []string // category names that mean income
	Outgoing   []string // description hints that rule out income
	Transfers  []string // description hints for moves between own accounts
}

// Default is tuned for US retail bank exports
var Default = Rules{
	Income: []string{
		"payroll", "salary", "paycheck", "direct deposit", "direct dep",
		"wages", "net pay", "employer", "bonus", "commission", "freelance",
		"dividend", "interest", "refund", "rebate", "cashback", "cash back",
		"reimbursement", "settlement", "payment received", "check deposit",
		"transfer in", "income", "earnings",
	},
	IncomeCats: []string{
		"paycheck", "salary", "income", "wages", "payroll", "earnings",
		"dividend", "interest", "refund", "deposit", "reimbursement",
	},
	Outgoing: []string{
		"card payment", "cc payment", "payment to", "loan payment",
		"mortgage payment", "bill payment", "autopay", "automatic payment",
		"scheduled payment", "transfer to", "withdrawal", "debit", "fee",
		"charge", "penalty", "subscription", "membership",
	},
	Transfers: []string{
		"funds transfer", "internal transfer", "credit card payment",
		"cc payment", "automatic payment - thank you", "recurring scheduled payment",
	},
}

// Classify applies Default. amount is the signed bank value; only credits can
// be income.
func Classify(description, category string, amount float64) models.TransactionKind {
	return Default.Classify(description, category, amount)
}

// IsInternalTransfer applies Default
func IsInternalTransfer(description, category string, amount float64) bool {
	return Default.IsInternalTransfer(description, category, amount)
}

func (r Rules) Classify(description, category string, amount float64) models.TransactionKind {
	desc, cat := normalize(description), normalize(category)

	switch {
	case amount <= 0, containsAny(desc, r.Outgoing):
		return models.Expense
	case r.incomeCategory(cat), containsAny(desc, r.Income):
		return models.Income
	}
	return models.Expense
}

// IsInternalTransfer reports rows that only move money between the user's
// own accounts. Credits that look like pay are never transfers.
func (r Rules) IsInternalTransfer(description, category string, amount float64) bool {
	desc, cat := normalize(description), normalize(category)

	if cat == "credit card payment" || cat == "transfer" {
		return true
	}
	if !containsAny(desc, r.Transfers) {
		return false
	}
	return amount <= 0 || !containsAny(desc, r.Income)
}

func (r Rules) incomeCategory(cat string) bool {
	return cat != "" && containsAny(cat, r.IncomeCats)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
