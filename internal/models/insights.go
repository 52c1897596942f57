package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// InsightType is the analyzer family that produced an insight
type InsightType string

const (
	SpendingPattern      InsightType = "spending_pattern"
	SavingOpportunity    InsightType = "saving_opportunity"
	BudgetRecommendation InsightType = "budget_recommendation"
	Anomaly              InsightType = "anomaly"
	GoalTracking         InsightType = "goal_tracking"
	TrendPrediction      InsightType = "trend_prediction"
)

// InsightTypes lists every insight type in a stable order
var InsightTypes = []InsightType{
	SpendingPattern,
	SavingOpportunity,
	BudgetRecommendation,
	Anomaly,
	GoalTracking,
	TrendPrediction,
}

// ParseInsightType validates a type string
func ParseInsightType(s string) (InsightType, error) {
	for _, t := range InsightTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown insight type %q", s)
}

// Severity is the valence of a finding
type Severity string

const (
	SeverityPositive Severity = "positive"
	SeverityNegative Severity = "negative"
	SeverityNeutral  Severity = "neutral"
	SeverityWarning  Severity = "warning"
)

// Priority is the urgency of a finding
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities; higher is more urgent
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Insight is a derived, human-readable finding
type Insight struct {
	ID          string                 `json:"id"`
	Type        InsightType            `json:"type"`
	Severity    Severity               `json:"severity"`
	Priority    Priority               `json:"priority"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Value       *float64               `json:"value,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Actionable  bool                   `json:"actionable"`
	Actions     []Action               `json:"actions,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	ExpiresAt   *time.Time             `json:"expires_at,omitempty"`
}

// ExpiredAt reports whether the insight has expired at the given time
func (i *Insight) ExpiredAt(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}

// ActionKind names what a suggested action does
type ActionKind string

const (
	ActionCreateBudget       ActionKind = "create_budget"
	ActionAdjustBudget       ActionKind = "adjust_budget"
	ActionReallocateBudget   ActionKind = "reallocate_budget"
	ActionReviewTransactions ActionKind = "review_transactions"
	ActionCancelSubscription ActionKind = "cancel_subscription"
	ActionAdjustGoal         ActionKind = "adjust_goal"
	ActionSetSavingsTarget   ActionKind = "set_savings_target"
)

// ActionParams is implemented only by the parameter records in this file,
// so the set of action kinds is closed.
type ActionParams interface {
	actionKind() ActionKind
}

// CreateBudgetParams suggests a new budget for a category
type CreateBudgetParams struct {
	CategoryID string  `json:"category_id"`
	Amount     float64 `json:"amount"`
}

// AdjustBudgetParams suggests changing an existing budget
type AdjustBudgetParams struct {
	BudgetID   string  `json:"budget_id,omitempty"`
	CategoryID string  `json:"category_id"`
	Amount     float64 `json:"amount"`
}

// ReallocateBudgetParams suggests moving unspent money elsewhere
type ReallocateBudgetParams struct {
	BudgetID   string  `json:"budget_id"`
	CategoryID string  `json:"category_id"`
	Available  float64 `json:"available"`
}

// ReviewTransactionsParams points at a set of transactions to look at
type ReviewTransactionsParams struct {
	CategoryID    string `json:"category_id,omitempty"`
	Merchant      string `json:"merchant,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Date          string `json:"date,omitempty"`
}

// CancelSubscriptionParams points at a recurring charge
type CancelSubscriptionParams struct {
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
}

// AdjustGoalParams suggests a new contribution for a goal
type AdjustGoalParams struct {
	GoalID              string  `json:"goal_id"`
	MonthlyContribution float64 `json:"monthly_contribution"`
}

// SetSavingsTargetParams suggests a monthly savings amount
type SetSavingsTargetParams struct {
	MonthlyAmount float64 `json:"monthly_amount"`
}

func (CreateBudgetParams) actionKind() ActionKind       { return ActionCreateBudget }
func (AdjustBudgetParams) actionKind() ActionKind       { return ActionAdjustBudget }
func (ReallocateBudgetParams) actionKind() ActionKind   { return ActionReallocateBudget }
func (ReviewTransactionsParams) actionKind() ActionKind { return ActionReviewTransactions }
func (CancelSubscriptionParams) actionKind() ActionKind { return ActionCancelSubscription }
func (AdjustGoalParams) actionKind() ActionKind         { return ActionAdjustGoal }
func (SetSavingsTargetParams) actionKind() ActionKind   { return ActionSetSavingsTarget }

// Action is a suggested follow-up for an insight
type Action struct {
	Label  string
	Params ActionParams
}

// NewAction builds an action with the given label
func NewAction(label string, params ActionParams) Action {
	return Action{Label: label, Params: params}
}

// Kind returns the action kind implied by its parameters
func (a Action) Kind() ActionKind {
	if a.Params == nil {
		return ""
	}
	return a.Params.actionKind()
}

type actionJSON struct {
	Label  string          `json:"label"`
	Kind   ActionKind      `json:"kind"`
	Params json.RawMessage `json:"params"`
}

// MarshalJSON writes the action as {label, kind, params}
func (a Action) MarshalJSON() ([]byte, error) {
	params, err := json.Marshal(a.Params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(actionJSON{Label: a.Label, Kind: a.Kind(), Params: params})
}

// UnmarshalJSON decodes params into the record matching kind
func (a *Action) UnmarshalJSON(data []byte) error {
	var raw actionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var params ActionParams
	switch raw.Kind {
	case ActionCreateBudget:
		var p CreateBudgetParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		params = p
	case ActionAdjustBudget:
		var p AdjustBudgetParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		params = p
	case ActionReallocateBudget:
		var p ReallocateBudgetParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		params = p
	case ActionReviewTransactions:
		var p ReviewTransactionsParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		params = p
	case ActionCancelSubscription:
		var p CancelSubscriptionParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		params = p
	case ActionAdjustGoal:
		var p AdjustGoalParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		params = p
	case ActionSetSavingsTarget:
		var p SetSavingsTargetParams
		if err := json.Unmarshal(raw.Params, &p); err != nil {
			return err
		}
		params = p
	default:
		return fmt.Errorf("unknown action kind %q", raw.Kind)
	}

	a.Label = raw.Label
	a.Params = params
	return nil
}

// RecurringCandidate is a merchant whose charges repeat with a stable amount
type RecurringCandidate struct {
	Merchant   string    `json:"merchant"`
	CategoryID string    `json:"category_id,omitempty"`
	Amount     float64   `json:"amount"`
	Frequency  float64   `json:"frequency"` // occurrences per 3-month window
	Count      int       `json:"count"`
	LastDate   time.Time `json:"last_date"`
	Variation  float64   `json:"variation"` // stddev / mean
}

// TrendModel is an ordinary least squares fit over an indexed series
type TrendModel struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	Samples   int     `json:"samples"`
}

// Predict returns the fitted value at index x
func (m TrendModel) Predict(x float64) float64 {
	return m.Slope*x + m.Intercept
}
