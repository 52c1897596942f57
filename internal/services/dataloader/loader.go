package dataloader

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"

	"fininsight/internal/models"
	"fininsight/internal/services/classifier"
	"fininsight/internal/services/insights"
	"fininsight/internal/services/storage"
)

// Settings files read from the settings directory
const (
	CategoriesFile = "categories.json"
	BudgetsFile    = "budgets.json"
	GoalsFile      = "goals.json"
)

// standardColumns is the order in which column variants are tried
var standardColumns = []string{"Date", "Description", "Amount", "Category", "Debit", "Credit"}

// columnMappings maps common bank export column names (lowercase) to our
// standard names
var columnMappings = map[string][]string{
	"Date": {
		"date", "transaction date", "posted date", "post date",
		"trans date", "posting date",
	},
	"Description": {
		"description", "memo", "details", "payee", "name",
		"transaction description", "merchant", "narrative",
	},
	"Amount": {
		"amount", "value", "transaction amount", "sum",
	},
	"Category": {
		"category", "type", "category name",
	},
	"Debit": {
		"debit", "withdrawal", "withdrawals", "money out", "expense",
	},
	"Credit": {
		"credit", "deposit", "deposits", "money in", "income",
	},
}

// DataLoader reads CSV bank exports and JSON settings through storage, so
// either may be age-encrypted on disk
type DataLoader struct {
	CSVDirectory          string
	SettingsDirectory     string
	FilteredTransferCount int
	enabledFiles          map[string]bool
	store                 *storage.Storage
	log                   zerolog.Logger
}

// row is a parsed CSV line before classification
type row struct {
	date        time.Time
	description string
	category    string
	amount      float64 // signed as exported
	sourceFile  string
}

// New creates a new DataLoader
func New(csvDirectory, settingsDirectory string, store *storage.Storage, log zerolog.Logger) *DataLoader {
	return &DataLoader{
		CSVDirectory:      csvDirectory,
		SettingsDirectory: settingsDirectory,
		enabledFiles:      make(map[string]bool),
		store:             store,
		log:               log.With().Str("component", "dataloader").Logger(),
	}
}

// normalizeColumnName maps a bank export column name to our standard name.
// Exact (case-insensitive) matches win; otherwise a header within one edit of
// a known variant is accepted, which catches typos like "Ammount".
func normalizeColumnName(col string) string {
	trimmed := strings.TrimSpace(col)
	lower := strings.ToLower(trimmed)

	for _, standard := range standardColumns {
		for _, variant := range columnMappings[standard] {
			if lower == variant {
				return standard
			}
		}
	}

	if len(lower) > 4 {
		for _, standard := range standardColumns {
			for _, variant := range columnMappings[standard] {
				if len(variant) > 4 && levenshtein.ComputeDistance(lower, variant) <= 1 {
					return standard
				}
			}
		}
	}
	return trimmed
}

// buildColumnIndex creates a normalized column index from CSV headers
func buildColumnIndex(header []string) map[string]int {
	colIndex := make(map[string]int)
	for i, col := range header {
		normalized := normalizeColumnName(col)
		// first match wins
		if _, exists := colIndex[normalized]; !exists {
			colIndex[normalized] = i
		}
	}
	return colIndex
}

// SetEnabledFiles restricts loading to the named CSV files
func (dl *DataLoader) SetEnabledFiles(files []string) {
	dl.enabledFiles = make(map[string]bool)
	for _, f := range files {
		dl.enabledFiles[f] = true
	}
}

// LoadTransactions loads, classifies and deduplicates transactions from all
// CSV files in the directory. categories are used to map category text in
// the files to category ids.
func (dl *DataLoader) LoadTransactions(categories []models.Category) ([]models.Transaction, error) {
	files, err := dl.store.Glob(filepath.Join(dl.CSVDirectory, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("error finding CSV files: %w", err)
	}
	sort.Strings(files)

	if len(files) == 0 {
		dl.log.Debug().Str("dir", dl.CSVDirectory).Msg("no CSV files found")
		return nil, nil
	}

	var rows []row
	for _, file := range files {
		filename := filepath.Base(file)
		if len(dl.enabledFiles) > 0 && !dl.enabledFiles[filename] {
			dl.log.Debug().Str("file", filename).Msg("skipping disabled file")
			continue
		}

		fileRows, err := dl.loadCSVFile(file)
		if err != nil {
			if errors.Is(err, storage.ErrLocked) {
				return nil, err
			}
			dl.log.Warn().Err(err).Str("file", filename).Msg("failed to load CSV file")
			continue
		}

		dl.log.Debug().Int("rows", len(fileRows)).Str("file", filename).Msg("loaded CSV file")
		rows = append(rows, fileRows...)
	}

	rows = dl.filterInternalTransfers(rows)
	transactions := toTransactions(rows, newCategoryResolver(categories))
	transactions = dl.deduplicateTransactions(transactions)

	dl.log.Debug().Int("transactions", len(transactions)).Msg("transactions after processing")
	return transactions, nil
}

// loadCSVFile parses a single CSV file
func (dl *DataLoader) loadCSVFile(filePath string) ([]row, error) {
	file, err := dl.store.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	colIndex := buildColumnIndex(header)

	_, hasAmount := colIndex["Amount"]
	_, hasDebit := colIndex["Debit"]
	_, hasCredit := colIndex["Credit"]
	useDebitCredit := !hasAmount && (hasDebit || hasCredit)

	if _, ok := colIndex["Date"]; !ok {
		return nil, fmt.Errorf("missing required column: Date (tried: %v)", columnMappings["Date"])
	}
	if _, ok := colIndex["Description"]; !ok {
		return nil, fmt.Errorf("missing required column: Description (tried: %v)", columnMappings["Description"])
	}
	if !hasAmount && !useDebitCredit {
		return nil, fmt.Errorf("missing required column: Amount or Debit/Credit (tried: %v)", columnMappings["Amount"])
	}

	sourceFile := filepath.Base(filePath)
	var rows []row
	lineNum := 1

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		lineNum++
		if err != nil {
			dl.log.Warn().Err(err).Int("line", lineNum).Str("file", sourceFile).Msg("skipping unreadable line")
			continue
		}

		r := row{sourceFile: sourceFile}

		dateStr := field(record, colIndex, "Date")
		r.date = parseDate(dateStr)
		if r.date.IsZero() {
			dl.log.Warn().Str("date", dateStr).Int("line", lineNum).Str("file", sourceFile).Msg("could not parse date")
			continue
		}

		if useDebitCredit {
			r.amount = parseDebitCredit(record, colIndex)
		} else {
			r.amount = parseAmount(field(record, colIndex, "Amount"))
		}
		if r.amount == 0 {
			continue
		}

		r.description = field(record, colIndex, "Description")
		r.category = field(record, colIndex, "Category")
		rows = append(rows, r)
	}

	return rows, nil
}

// field returns the trimmed value of a standard column, or ""
func field(record []string, colIndex map[string]int, name string) string {
	if idx, ok := colIndex[name]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

// parseDebitCredit combines Debit and Credit columns into a single signed
// amount: credits positive, debits negative
func parseDebitCredit(record []string, colIndex map[string]int) float64 {
	var amount float64

	if credit := parseAmount(field(record, colIndex, "Credit")); credit != 0 {
		amount = math.Abs(credit)
	}
	if debit := parseAmount(field(record, colIndex, "Debit")); debit != 0 {
		amount = -math.Abs(debit)
	}
	return amount
}

// parseDate tries multiple date formats
func parseDate(s string) time.Time {
	formats := []string{
		"2006-01-02",
		"01/02/2006",
		"1/2/2006",
		"01-02-2006",
		"2006/01/02",
		"Jan 2, 2006",
		"January 2, 2006",
		"2 Jan 2006",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseAmount parses an amount string, handling currency symbols and parentheses
func parseAmount(s string) float64 {
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	// (100.00) -> -100.00
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}

	amount, _ := strconv.ParseFloat(s, 64)
	return amount
}

// filterInternalTransfers removes transfers between own accounts to avoid
// double-counting
func (dl *DataLoader) filterInternalTransfers(rows []row) []row {
	var filtered []row
	for _, r := range rows {
		if !classifier.IsInternalTransfer(r.description, r.category, r.amount) {
			filtered = append(filtered, r)
		}
	}

	dl.FilteredTransferCount = len(rows) - len(filtered)
	if dl.FilteredTransferCount > 0 {
		dl.log.Debug().Int("count", dl.FilteredTransferCount).Msg("filtered internal transfers")
	}
	return filtered
}

// toTransactions classifies rows and converts them to positive-amount
// transactions
func toTransactions(rows []row, resolve categoryResolver) []models.Transaction {
	transactions := make([]models.Transaction, 0, len(rows))
	for _, r := range rows {
		kind := classifier.Classify(r.description, r.category, r.amount)
		t := models.Transaction{
			Date:       r.date,
			Amount:     math.Abs(r.amount),
			Merchant:   r.description,
			Kind:       kind,
			SourceFile: r.sourceFile,
		}
		if kind == models.Expense {
			t.CategoryID = resolve(r.category)
		}
		t.Hash = t.ComputeHash()
		t.ID = t.Hash
		transactions = append(transactions, t)
	}
	return transactions
}

// deduplicateTransactions removes duplicate transactions based on hash
func (dl *DataLoader) deduplicateTransactions(transactions []models.Transaction) []models.Transaction {
	seen := make(map[string]bool)
	var unique []models.Transaction

	for _, t := range transactions {
		if !seen[t.Hash] {
			seen[t.Hash] = true
			unique = append(unique, t)
		}
	}

	if removed := len(transactions) - len(unique); removed > 0 {
		dl.log.Debug().Int("count", removed).Msg("removed duplicate transactions")
	}
	return unique
}

type categoryResolver func(text string) string

// newCategoryResolver maps free-form category text to a category id by id or
// name (case-insensitive); unknown text becomes a slug of itself
func newCategoryResolver(categories []models.Category) categoryResolver {
	byKey := make(map[string]string, len(categories)*2)
	for _, c := range categories {
		byKey[strings.ToLower(c.ID)] = c.ID
		byKey[strings.ToLower(c.Name)] = c.ID
	}
	return func(text string) string {
		key := strings.ToLower(strings.TrimSpace(text))
		if key == "" {
			return ""
		}
		if id, ok := byKey[key]; ok {
			return id
		}
		return strings.Join(strings.Fields(key), "-")
	}
}

// LoadCategories reads categories.json; a missing file yields no categories
func (dl *DataLoader) LoadCategories() ([]models.Category, error) {
	var categories []models.Category
	if err := dl.readSettings(CategoriesFile, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// LoadBudgets reads budgets.json; a missing file yields no budgets
func (dl *DataLoader) LoadBudgets() ([]models.Budget, error) {
	var budgets []models.Budget
	if err := dl.readSettings(BudgetsFile, &budgets); err != nil {
		return nil, err
	}
	return budgets, nil
}

// LoadGoals reads goals.json; a missing file yields no goals
func (dl *DataLoader) LoadGoals() ([]models.Goal, error) {
	var goals []models.Goal
	if err := dl.readSettings(GoalsFile, &goals); err != nil {
		return nil, err
	}
	return goals, nil
}

func (dl *DataLoader) readSettings(name string, v interface{}) error {
	err := dl.store.ReadJSON(filepath.Join(dl.SettingsDirectory, name), v)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// LoadSnapshot assembles the engine input from files. The file source holds a
// single user's data, so userID is only recorded on the snapshot.
// Transactions are limited to [since, now]; budgets without a recorded spend
// get the current month's expenses for their category.
func (dl *DataLoader) LoadSnapshot(ctx context.Context, userID string, since, now time.Time) (insights.Snapshot, error) {
	snap := insights.Snapshot{UserID: userID}

	categories, err := dl.LoadCategories()
	if err != nil {
		return snap, fmt.Errorf("load categories: %w", err)
	}
	budgets, err := dl.LoadBudgets()
	if err != nil {
		return snap, fmt.Errorf("load budgets: %w", err)
	}
	goals, err := dl.LoadGoals()
	if err != nil {
		return snap, fmt.Errorf("load goals: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return snap, err
	}

	all, err := dl.LoadTransactions(categories)
	if err != nil {
		return snap, fmt.Errorf("load transactions: %w", err)
	}

	set := models.NewTransactionSet(all)
	window := set.FilterByDateRange(since, now).SortByDate()

	monthSpend := set.Expenses().FilterByMonth(models.MonthKey(now)).CategoryTotals()
	for i := range budgets {
		if budgets[i].Spent == 0 {
			budgets[i].Spent = monthSpend[budgets[i].CategoryID]
		}
	}

	snap.Transactions = window.Transactions
	snap.Categories = categories
	snap.Budgets = budgets
	snap.Goal = SelectGoal(goals)
	return snap, nil
}

// SelectGoal returns the most recently created active goal, or nil
func SelectGoal(goals []models.Goal) *models.Goal {
	var best *models.Goal
	for i := range goals {
		g := &goals[i]
		if g.Status != "" && g.Status != models.GoalActive {
			continue
		}
		if best == nil || g.CreatedAt.After(best.CreatedAt) ||
			(g.CreatedAt.Equal(best.CreatedAt) && g.ID > best.ID) {
			best = g
		}
	}
	if best == nil {
		return nil
	}
	goal := *best
	return &goal
}
