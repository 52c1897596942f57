// Package pgstore loads insight snapshots from Postgres.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fininsight/internal/models"
	"fininsight/internal/services/insights"
)

// ErrInvalidUser is returned for user ids that are not UUIDs
var ErrInvalidUser = errors.New("invalid user id")

const (
	transactionsQuery = `
		SELECT id, occurred_on, amount::float8, COALESCE(category_id, ''), merchant, kind
		FROM transactions
		WHERE user_id = $1 AND occurred_on >= $2 AND occurred_on <= $3
		ORDER BY occurred_on, id`

	categoriesQuery = `
		SELECT id, name, type
		FROM categories
		WHERE user_id = $1
		ORDER BY id`

	// spent is the current month's expense total for the budget's category
	budgetsQuery = `
		SELECT b.id, b.category_id, b.allocated::float8,
		       COALESCE(SUM(t.amount), 0)::float8, b.period
		FROM budgets b
		LEFT JOIN transactions t
		       ON t.user_id = b.user_id
		      AND t.category_id = b.category_id
		      AND t.kind = 'expense'
		      AND t.occurred_on >= $2 AND t.occurred_on < $3
		WHERE b.user_id = $1 AND b.active
		GROUP BY b.id, b.category_id, b.allocated, b.period
		ORDER BY b.id`

	goalQuery = `
		SELECT id, name, target_amount::float8, current_amount::float8,
		       target_date, status, created_at
		FROM goals
		WHERE user_id = $1 AND status = 'active'
		ORDER BY created_at DESC, id DESC
		LIMIT 1`
)

// querier is the subset of pgxpool.Pool used by Store
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads user financial data from Postgres
type Store struct {
	db   querier
	pool *pgxpool.Pool
}

// New connects a pool to databaseURL and verifies it with a ping
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{db: pool, pool: pool}, nil
}

// Close releases the pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// LoadSnapshot reads the user's transactions in [since, now], categories,
// active budgets with the current month's spend, and most recent active goal
func (s *Store) LoadSnapshot(ctx context.Context, userID string, since, now time.Time) (insights.Snapshot, error) {
	snap := insights.Snapshot{UserID: userID}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return snap, fmt.Errorf("%w: %q", ErrInvalidUser, userID)
	}

	if snap.Transactions, err = s.transactions(ctx, uid, since, now); err != nil {
		return snap, fmt.Errorf("load transactions: %w", err)
	}
	if snap.Categories, err = s.categories(ctx, uid); err != nil {
		return snap, fmt.Errorf("load categories: %w", err)
	}
	if snap.Budgets, err = s.budgets(ctx, uid, now); err != nil {
		return snap, fmt.Errorf("load budgets: %w", err)
	}
	if snap.Goal, err = s.goal(ctx, uid); err != nil {
		return snap, fmt.Errorf("load goal: %w", err)
	}
	return snap, nil
}

func (s *Store) transactions(ctx context.Context, uid uuid.UUID, since, now time.Time) ([]models.Transaction, error) {
	rows, err := s.db.Query(ctx, transactionsQuery, uid, dateOnly(since), dateOnly(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var kind string
		if err := rows.Scan(&t.ID, &t.Date, &t.Amount, &t.CategoryID, &t.Merchant, &kind); err != nil {
			return nil, err
		}
		t.Kind = models.TransactionKind(kind)
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (s *Store) categories(ctx context.Context, uid uuid.UUID) ([]models.Category, error) {
	rows, err := s.db.Query(ctx, categoriesQuery, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Type); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Store) budgets(ctx context.Context, uid uuid.UUID, now time.Time) ([]models.Budget, error) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	rows, err := s.db.Query(ctx, budgetsQuery, uid, start, start.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []models.Budget
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.CategoryID, &b.Allocated, &b.Spent, &b.Period); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (s *Store) goal(ctx context.Context, uid uuid.UUID) (*models.Goal, error) {
	var g models.Goal
	var status string
	err := s.db.QueryRow(ctx, goalQuery, uid).Scan(
		&g.ID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &g.TargetDate, &status, &g.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	g.Status = models.GoalStatus(status)
	return &g, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
