package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fininsight/internal/models"
	"fininsight/internal/testutil"
)

var now = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func TestRenderInsights(t *testing.T) {
	list := []models.Insight{
		{
			ID:          "budget-recommendation-over-b-food",
			Severity:    models.SeverityWarning,
			Priority:    models.PriorityHigh,
			Title:       "Food budget is too low",
			Description: "You spent $660.00 against a $500.00 budget.",
			Actions: []models.Action{
				models.NewAction("Raise budget", models.AdjustBudgetParams{BudgetID: "b-food", Amount: 726}),
			},
		},
	}

	out := renderInsights("alice", now, list)
	for _, want := range []string{
		"Insights for alice",
		"1 found",
		"[high/warning]",
		"Food budget is too low",
		"Raise budget (adjust_budget)",
		"budget-recommendation-over-b-food",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	out := renderInsights("bob", now, nil)
	if !strings.Contains(out, "Nothing to report.") || !strings.Contains(out, "0 found") {
		t.Errorf("unexpected empty output:\n%s", out)
	}
}

func TestRunGenerateFromFiles(t *testing.T) {
	cfg := testutil.TestConfig(t)
	testutil.WriteFile(t, cfg.DataDirectory, "bank.csv", `Date,Description,Amount,Category
2024-06-01,Payroll ACME,1000.00,Paycheck
2024-06-03,Market,-950.00,Food
`)

	var out bytes.Buffer
	err := runGenerate(cfg, zerolog.Nop(), []string{"-now", "2024-06-15", "-type", "goal_tracking"}, &out)
	if err != nil {
		t.Fatalf("runGenerate: %v", err)
	}
	if !strings.Contains(out.String(), "goal-tracking-savings-rate-low-2024-06") {
		t.Errorf("expected low savings insight in:\n%s", out.String())
	}

	if err := runGenerate(cfg, zerolog.Nop(), []string{"-type", "astrology"}, &out); err == nil {
		t.Error("expected error for unknown type")
	}
}
