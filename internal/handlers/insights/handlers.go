package insights

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apphttp "fininsight/internal/http"
	"fininsight/internal/logger"
	"fininsight/internal/models"
	engine "fininsight/internal/services/insights"
	"fininsight/internal/services/insightstate"
	"fininsight/internal/services/metrics"
	"fininsight/internal/services/pgstore"
	"fininsight/internal/services/storage"
)

// Source loads the data one insight run works on
type Source interface {
	LoadSnapshot(ctx context.Context, userID string, since, now time.Time) (engine.Snapshot, error)
}

const defaultSnoozeDays = 7

var (
	source     Source
	gen        *engine.Engine
	state      *insightstate.Store
	windowDays int
	clock      = time.Now
)

// Initialize sets up the insights package with required dependencies
func Initialize(src Source, e *engine.Engine, st *insightstate.Store, window int) {
	source = src
	gen = e
	state = st
	windowDays = window
}

// RegisterRoutes registers all insights routes
func RegisterRoutes(r chi.Router) {
	r.Get("/insights", handleInsights)
	r.Get("/insights/type/{type}", handleInsightsByType)
	r.Get("/insights/recurring", handleRecurring)
	r.Get("/insights/trends", handleTrends)
	r.Post("/insights/{id}/dismiss", handleDismiss)
	r.Post("/insights/{id}/snooze", handleSnooze)
	r.Post("/insights/{id}/helpful", handleHelpful)
}

type runResponse struct {
	RunID       string           `json:"run_id"`
	UserID      string           `json:"user_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Count       int              `json:"count"`
	Insights    []models.Insight `json:"insights"`
}

type trendsResponse struct {
	UserID       string                 `json:"user_id"`
	Summary      metrics.Summary        `json:"summary"`
	Months       []models.MonthlySample `json:"months"`
	ExpenseTrend *models.TrendModel     `json:"expense_trend,omitempty"`
	IncomeTrend  *models.TrendModel     `json:"income_trend,omitempty"`
}

// request is the parsed common part of every insight request
type request struct {
	userID string
	now    time.Time
}

func parseRequest(w http.ResponseWriter, r *http.Request) (request, bool) {
	now, err := apphttp.ParseNow(r.FormValue("now"), clock())
	if err != nil {
		apphttp.ErrorResponse(w, r, err.Error(), http.StatusBadRequest)
		return request{}, false
	}
	return request{userID: apphttp.UserID(r), now: now}, true
}

func loadSnapshot(w http.ResponseWriter, r *http.Request, req request) (engine.Snapshot, bool) {
	since := startOfDay(req.now.AddDate(0, 0, -windowDays))
	snap, err := source.LoadSnapshot(r.Context(), req.userID, since, req.now)
	if err != nil {
		apphttp.ErrorResponse(w, r, err.Error(), statusFor(err))
		return snap, false
	}
	return snap, true
}

// startOfDay truncates t to midnight in its own location; sources treat the
// window start day as inclusive
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// generate runs the engine for one request; typ restricts the result when set
func generate(w http.ResponseWriter, r *http.Request, req request, typ models.InsightType) ([]models.Insight, bool) {
	snap, ok := loadSnapshot(w, r, req)
	if !ok {
		return nil, false
	}

	start := time.Now()
	var list []models.Insight
	var err error
	if typ == "" {
		list, err = gen.Generate(r.Context(), snap, req.now)
	} else {
		list, err = gen.GenerateType(r.Context(), snap, req.now, typ)
	}
	if err != nil {
		apphttp.ErrorResponse(w, r, err.Error(), statusFor(err))
		return nil, false
	}

	log := logger.WithFields(logger.FromContext(r.Context()), map[string]interface{}{
		"user": req.userID,
		"type": string(typ),
	})
	log.Debug().
		Int("transactions", len(snap.Transactions)).
		Int("insights", len(list)).
		Dur("elapsed", time.Since(start)).
		Msg("generated insights")
	return list, true
}

func handleInsights(w http.ResponseWriter, r *http.Request) {
	respondRun(w, r, "")
}

func handleInsightsByType(w http.ResponseWriter, r *http.Request) {
	typ, err := models.ParseInsightType(chi.URLParam(r, "type"))
	if err != nil {
		apphttp.ErrorResponse(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	respondRun(w, r, typ)
}

func respondRun(w http.ResponseWriter, r *http.Request, typ models.InsightType) {
	req, ok := parseRequest(w, r)
	if !ok {
		return
	}
	list, ok := generate(w, r, req, typ)
	if !ok {
		return
	}

	includeHidden, _ := strconv.ParseBool(r.FormValue("include_hidden"))
	if !includeHidden {
		list = state.Visible(req.userID, list, req.now)
	}
	if list == nil {
		list = []models.Insight{}
	}

	apphttp.WriteJSON(w, http.StatusOK, runResponse{
		RunID:       uuid.NewString(),
		UserID:      req.userID,
		GeneratedAt: req.now,
		Count:       len(list),
		Insights:    list,
	})
}

func handleRecurring(w http.ResponseWriter, r *http.Request) {
	req, ok := parseRequest(w, r)
	if !ok {
		return
	}
	snap, ok := loadSnapshot(w, r, req)
	if !ok {
		return
	}

	recurring := engine.DetectRecurring(snap.Transactions)
	if recurring == nil {
		recurring = []models.RecurringCandidate{}
	}
	apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":   req.userID,
		"count":     len(recurring),
		"recurring": recurring,
	})
}

func handleTrends(w http.ResponseWriter, r *http.Request) {
	req, ok := parseRequest(w, r)
	if !ok {
		return
	}
	snap, ok := loadSnapshot(w, r, req)
	if !ok {
		return
	}

	ts := models.NewTransactionSet(snap.Transactions)
	samples := metrics.MonthlySamples(ts)
	resp := trendsResponse{UserID: req.userID, Summary: metrics.Summarize(ts), Months: samples}
	if resp.Months == nil {
		resp.Months = []models.MonthlySample{}
	}

	// same minimum history the forecast insights need
	if len(samples) >= 3 {
		expenses := make([]float64, len(samples))
		income := make([]float64, len(samples))
		for i, s := range samples {
			expenses[i] = s.Expenses
			income[i] = s.Income
		}
		et := engine.FitTrend(expenses)
		it := engine.FitTrend(income)
		resp.ExpenseTrend = &et
		resp.IncomeTrend = &it
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
}

// findInsight regenerates the user's insights and returns the one with id
func findInsight(w http.ResponseWriter, r *http.Request, req request, id string) (models.Insight, bool) {
	list, ok := generate(w, r, req, "")
	if !ok {
		return models.Insight{}, false
	}
	for _, in := range list {
		if in.ID == id {
			return in, true
		}
	}
	apphttp.ErrorResponse(w, r, "insight not found: "+id, http.StatusNotFound)
	return models.Insight{}, false
}

func handleDismiss(w http.ResponseWriter, r *http.Request) {
	req, ok := parseRequest(w, r)
	if !ok {
		return
	}
	in, ok := findInsight(w, r, req, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := state.Dismiss(req.userID, in, req.now); err != nil {
		apphttp.ErrorResponse(w, r, err.Error(), statusFor(err))
		return
	}
	respondState(w, req.userID, in.ID, "dismissed")
}

func handleSnooze(w http.ResponseWriter, r *http.Request) {
	req, ok := parseRequest(w, r)
	if !ok {
		return
	}

	days := defaultSnoozeDays
	if s := r.FormValue("days"); s != "" {
		d, err := strconv.Atoi(s)
		if err != nil || d <= 0 {
			apphttp.ErrorResponse(w, r, "days must be a positive integer", http.StatusBadRequest)
			return
		}
		days = d
	}

	in, ok := findInsight(w, r, req, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := state.Snooze(req.userID, in.ID, days, req.now); err != nil {
		apphttp.ErrorResponse(w, r, err.Error(), statusFor(err))
		return
	}
	respondState(w, req.userID, in.ID, "snoozed")
}

func handleHelpful(w http.ResponseWriter, r *http.Request) {
	req, ok := parseRequest(w, r)
	if !ok {
		return
	}

	helpful := true
	if s := r.FormValue("helpful"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			apphttp.ErrorResponse(w, r, "helpful must be true or false", http.StatusBadRequest)
			return
		}
		helpful = v
	}

	id := chi.URLParam(r, "id")
	if err := state.MarkHelpful(req.userID, id, helpful, req.now); err != nil {
		apphttp.ErrorResponse(w, r, err.Error(), statusFor(err))
		return
	}
	respondState(w, req.userID, id, "recorded")
}

func respondState(w http.ResponseWriter, userID, id, status string) {
	entry, _ := state.Get(userID, id)
	apphttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"status": status,
		"state":  entry,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, pgstore.ErrInvalidUser):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
