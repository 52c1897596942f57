package pgstore

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"fininsight/internal/models"
)

// fakeRows serves canned rows through the pgx.Rows interface
type fakeRows struct {
	data [][]any
	pos  int
	err  error
}

func (r *fakeRows) Close() {}
func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte { return nil }
func (r *fakeRows) Conn() *pgx.Conn { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) {
	return r.data[r.pos-1], nil
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(r.data[r.pos-1], dest)
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return errors.New("column count mismatch")
	}
	for i, v := range values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

type call struct {
	sql  string
	args []any
}

// fakeDB answers queries by matching a table name in the SQL
type fakeDB struct {
	rows  map[string][][]any
	goal  fakeRow
	calls []call
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql, args})
	for table, data := range f.rows {
		if strings.Contains(sql, "FROM "+table) {
			return &fakeRows{data: data}, nil
		}
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{sql, args})
	return f.goal
}

func TestLoadSnapshot(t *testing.T) {
	userID := "6f1c2a9e-3b4d-4e5f-8a7b-9c0d1e2f3a4b"
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	db := &fakeDB{
		rows: map[string][][]any{
			"transactions": {
				{"t1", day, 42.5, "food", "Market", "expense"},
				{"t2", day, 3000.0, "", "Employer", "income"},
			},
			"categories": {{"food", "Food", "expense"}},
			"budgets b":  {{"b1", "food", 400.0, 42.5, "monthly"}},
		},
		goal: fakeRow{values: []any{"g1", "Trip", 1000.0, 250.0, nil, "active", created}},
	}
	store := &Store{db: db}

	now := time.Date(2024, 6, 15, 18, 30, 0, 0, time.UTC)
	snap, err := store.LoadSnapshot(context.Background(), userID, now.AddDate(0, 0, -90), now)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}

	if len(snap.Transactions) != 2 || snap.Transactions[1].Kind != models.Income {
		t.Errorf("unexpected transactions: %+v", snap.Transactions)
	}
	if len(snap.Categories) != 1 || snap.Categories[0].Name != "Food" {
		t.Errorf("unexpected categories: %+v", snap.Categories)
	}
	if len(snap.Budgets) != 1 || snap.Budgets[0].Spent != 42.5 {
		t.Errorf("unexpected budgets: %+v", snap.Budgets)
	}
	if snap.Goal == nil || snap.Goal.Status != models.GoalActive || snap.Goal.TargetDate != nil {
		t.Errorf("unexpected goal: %+v", snap.Goal)
	}

	if len(db.calls) != 4 {
		t.Fatalf("expected 4 queries, got %d", len(db.calls))
	}
	uid := uuid.MustParse(userID)
	for _, c := range db.calls {
		if c.args[0] != uid {
			t.Errorf("query not scoped to user: %v", c.args)
		}
	}

	txArgs := db.calls[0].args
	if !txArgs[1].(time.Time).Equal(time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)) ||
		!txArgs[2].(time.Time).Equal(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected window args: %v", txArgs[1:])
	}

	budgetArgs := db.calls[2].args
	if !budgetArgs[1].(time.Time).Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) ||
		!budgetArgs[2].(time.Time).Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected month args: %v", budgetArgs[1:])
	}
}

func TestLoadSnapshotNoGoal(t *testing.T) {
	store := &Store{db: &fakeDB{goal: fakeRow{err: pgx.ErrNoRows}}}
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	snap, err := store.LoadSnapshot(context.Background(), uuid.NewString(), now.AddDate(0, 0, -90), now)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if snap.Goal != nil {
		t.Errorf("expected no goal, got %+v", snap.Goal)
	}
}

func TestLoadSnapshotErrors(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	store := &Store{db: &fakeDB{}}
	if _, err := store.LoadSnapshot(context.Background(), "not-a-uuid", now, now); !errors.Is(err, ErrInvalidUser) {
		t.Errorf("expected ErrInvalidUser, got %v", err)
	}

	boom := errors.New("connection reset")
	store = &Store{db: &fakeDB{goal: fakeRow{err: boom}}}
	if _, err := store.LoadSnapshot(context.Background(), uuid.NewString(), now, now); !errors.Is(err, boom) {
		t.Errorf("expected wrapped driver error, got %v", err)
	}
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://u:p@localhost:5432/fin?sslmode=disable", "pgx5://u:p@localhost:5432/fin?sslmode=disable"},
		{"postgresql://localhost/fin", "pgx5://localhost/fin"},
		{"pgx5://localhost/fin", "pgx5://localhost/fin"},
	}
	for _, tt := range tests {
		if got := migrateURL(tt.in); got != tt.want {
			t.Errorf("migrateURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
