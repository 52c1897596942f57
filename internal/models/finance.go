package models

import "time"

// UncategorizedID is used for transactions that carry no category
const UncategorizedID = "uncategorized"

// Category is a user-defined spending or income category
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"` // "expense" or "income"
}

// CategoryAggregate summarizes spend for one category over a window.
// Derived per run, never persisted.
type CategoryAggregate struct {
	CategoryID string  `json:"category_id"`
	Name       string  `json:"name"`
	Total      float64 `json:"total"`
	Count      int     `json:"count"`
	Average    float64 `json:"average"`
}

// Budget is an allocation for one category in the active period
type Budget struct {
	ID         string  `json:"id"`
	CategoryID string  `json:"category_id"`
	Allocated  float64 `json:"allocated"`
	Spent      float64 `json:"spent"`
	Period     string  `json:"period,omitempty"`
}

// Remaining returns the unspent part of the allocation
func (b *Budget) Remaining() float64 {
	return b.Allocated - b.Spent
}

// Utilization returns spent/allocated, or 0 when nothing is allocated
func (b *Budget) Utilization() float64 {
	if b.Allocated <= 0 {
		return 0
	}
	return b.Spent / b.Allocated
}

// GoalStatus is the lifecycle state of a savings goal
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
)

// Goal is a savings target
type Goal struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	TargetAmount  float64    `json:"target_amount"`
	CurrentAmount float64    `json:"current_amount"`
	TargetDate    *time.Time `json:"target_date,omitempty"`
	Status        GoalStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
}

// RemainingAmount returns how much is still needed to reach the target
func (g *Goal) RemainingAmount() float64 {
	remaining := g.TargetAmount - g.CurrentAmount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Progress returns completion as a percentage, or 0 for a zero target
func (g *Goal) Progress() float64 {
	if g.TargetAmount <= 0 {
		return 0
	}
	return g.CurrentAmount / g.TargetAmount * 100
}

// MonthlySample holds income and expense totals for one calendar month
type MonthlySample struct {
	Month    string  `json:"month"` // "2006-01"
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

// Net returns income minus expenses
func (m MonthlySample) Net() float64 {
	return m.Income - m.Expenses
}
