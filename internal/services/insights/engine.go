package insights

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"fininsight/internal/models"
	"fininsight/internal/services/metrics"
)

// Snapshot is the already-fetched financial data for one user
type Snapshot struct {
	UserID       string
	Transactions []models.Transaction
	Categories   []models.Category
	Budgets      []models.Budget
	Goal         *models.Goal // most recent active goal, may be nil
}

// dataset holds the lookup tables shared by all analyzers. It is built once
// per run and only read afterwards.
type dataset struct {
	now          time.Time
	all          *models.TransactionSet
	expenses     *models.TransactionSet
	names        map[string]string
	aggregates   []models.CategoryAggregate
	samples      []models.MonthlySample
	currentMonth models.MonthlySample
	recurring    []models.RecurringCandidate
	budgets      []models.Budget
	goal         *models.Goal
}

func newDataset(snap Snapshot, now time.Time) *dataset {
	all := models.NewTransactionSet(snap.Transactions)

	names := make(map[string]string, len(snap.Categories))
	for _, c := range snap.Categories {
		names[c.ID] = c.Name
	}

	return &dataset{
		now:          now,
		all:          all,
		expenses:     all.Expenses(),
		names:        names,
		aggregates:   metrics.CategoryAggregates(all, snap.Categories),
		samples:      metrics.MonthlySamples(all),
		currentMonth: metrics.MonthTotals(all, models.MonthKey(now)),
		recurring:    DetectRecurring(snap.Transactions),
		budgets:      snap.Budgets,
		goal:         snap.Goal,
	}
}

func (d *dataset) categoryName(id string) string {
	if name, ok := d.names[id]; ok && name != "" {
		return name
	}
	if id == "" {
		return models.UncategorizedID
	}
	return id
}

type analyzer func(d *dataset) []models.Insight

// Engine generates insights from a snapshot. It holds no state between runs.
type Engine struct {
	analyzers []analyzer
}

// New creates an engine with all analyzers registered
func New() *Engine {
	return &Engine{
		analyzers: []analyzer{
			analyzeSpendingPatterns,
			analyzeSavingOpportunities,
			analyzeBudgets,
			analyzeAnomalies,
			analyzeGoals,
			analyzeTrends,
		},
	}
}

// Generate runs every analyzer concurrently over snap and returns the merged
// insights sorted by priority, then creation time. The same snapshot and now
// always yield the same list. An error is only returned when ctx is done
// before the analyzers finish.
func (e *Engine) Generate(ctx context.Context, snap Snapshot, now time.Time) ([]models.Insight, error) {
	d := newDataset(snap, now)
	results := make([][]models.Insight, len(e.analyzers))

	g, ctx := errgroup.WithContext(ctx)
	for i, run := range e.analyzers {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = run(d)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []models.Insight
	for _, r := range results {
		merged = append(merged, r...)
	}
	Sort(merged)
	return merged, nil
}

// GenerateType runs the engine and keeps only insights of type t
func (e *Engine) GenerateType(ctx context.Context, snap Snapshot, now time.Time, t models.InsightType) ([]models.Insight, error) {
	all, err := e.Generate(ctx, snap, now)
	if err != nil {
		return nil, err
	}
	var filtered []models.Insight
	for _, in := range all {
		if in.Type == t {
			filtered = append(filtered, in)
		}
	}
	return filtered, nil
}

// Sort orders insights by priority (critical first), then by creation time
// ascending. Equal entries keep their relative order.
func Sort(insights []models.Insight) {
	sort.SliceStable(insights, func(i, j int) bool {
		ri, rj := insights[i].Priority.Rank(), insights[j].Priority.Rank()
		if ri != rj {
			return ri > rj
		}
		return insights[i].CreatedAt.Before(insights[j].CreatedAt)
	})
}
