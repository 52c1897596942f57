package main

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fininsight/internal/config"
	apphttp "fininsight/internal/http"
	"fininsight/internal/models"
	"fininsight/internal/services/insightstate"
	"fininsight/internal/services/storage"
	"fininsight/internal/testutil"
)

const bankCSV = `Date,Description,Amount,Category
2024-04-01,Payroll ACME,4000.00,Paycheck
2024-04-02,Landlord,-1500.00,Rent
2024-04-05,Market,-420.00,Food
2024-05-01,Payroll ACME,4000.00,Paycheck
2024-05-02,Landlord,-1500.00,Rent
2024-05-05,Market,-480.00,Food
2024-06-01,Payroll ACME,4000.00,Paycheck
2024-06-02,Landlord,-1500.00,Rent
2024-06-05,Market,-660.00,Food
2024-06-07,Gadget Store,-1800.00,Electronics
`

const budgetsJSON = `[{"id":"b-food","category_id":"food","allocated":500}]`

const categoriesJSON = `[{"id":"food","name":"Food"},{"id":"rent","name":"Rent"}]`

// setupTestServer initializes dependencies against a temp data directory and
// returns a test server
func setupTestServer(t *testing.T) *testutil.TestServer {
	t.Helper()

	c := testutil.TestConfig(t)
	testutil.WriteFile(t, c.DataDirectory, "bank.csv", bankCSV)
	testutil.WriteFile(t, c.SettingsDirectory, "budgets.json", budgetsJSON)
	testutil.WriteFile(t, c.SettingsDirectory, "categories.json", categoriesJSON)

	if err := SetupDependencies(c); err != nil {
		t.Fatalf("Failed to setup dependencies: %v", err)
	}
	t.Cleanup(Shutdown)

	ts := testutil.NewTestServer(t, SetupRouter())
	t.Cleanup(ts.Close)
	return ts
}

// TestHealthEndpoint tests the /api/health endpoint
func TestHealthEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.GET("/api/health")
	testutil.AssertResponse(t, resp).
		StatusOK().
		ContentTypeJSON().
		Contains(`"status":"ok"`)
}

// TestVersionEndpoint tests the /api/version endpoint
func TestVersionEndpoint(t *testing.T) {
	ts := setupTestServer(t)

	testutil.AssertResponse(t, ts.GET("/api/version")).
		StatusOK().
		ContentTypeJSON().
		ContainsAll(`"version"`, `"goVersion"`)
}

// TestRootRedirect tests that / redirects to /insights
func TestRootRedirect(t *testing.T) {
	ts := setupTestServer(t)

	// Don't follow redirects
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(ts.BaseURL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusTemporaryRedirect {
		t.Errorf("Expected status %d, got %d", http.StatusTemporaryRedirect, resp.StatusCode)
	}
	if location := resp.Header.Get("Location"); location != "/insights" {
		t.Errorf("Expected redirect to /insights, got %s", location)
	}
}

// TestInsightsFromFiles runs the whole pipeline from CSV to JSON
func TestInsightsFromFiles(t *testing.T) {
	ts := setupTestServer(t)

	testutil.AssertResponse(t, ts.GETWithQuery("/insights", map[string]string{"now": "2024-06-15"})).
		StatusOK().
		ContentTypeJSON().
		ContainsAll(
			`"run_id"`,
			`"budget-recommendation-over-b-food"`,
			`"trend-prediction-expenses-2024-07"`,
		)
}

// TestInsightEndpoints tests that each insight endpoint returns JSON
func TestInsightEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	paths := []string{
		"/insights/type/anomaly",
		"/insights/recurring",
		"/insights/trends",
	}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			testutil.AssertResponse(t, ts.GETWithQuery(path, map[string]string{"now": "2024-06-15"})).
				StatusOK().
				ContentTypeJSON()
		})
	}
}

// TestBadRequests tests validation errors
func TestBadRequests(t *testing.T) {
	ts := setupTestServer(t)

	testutil.AssertResponse(t, ts.GET("/insights/type/nope")).
		Status(http.StatusBadRequest).
		ContentTypeJSON()

	testutil.AssertResponse(t, ts.GETWithQuery("/insights", map[string]string{"now": "not-a-date"})).
		Status(http.StatusBadRequest)

	testutil.AssertResponse(t, ts.POSTForm("/insights/unknown-id/dismiss", map[string]string{"now": "2024-06-15"})).
		Status(http.StatusNotFound)
}

// TestDismissHidesInsight checks dismissed insights drop out of later runs
func TestDismissHidesInsight(t *testing.T) {
	ts := setupTestServer(t)
	const id = "budget-recommendation-over-b-food"
	now := map[string]string{"now": "2024-06-15"}

	testutil.AssertResponse(t, ts.POSTForm("/insights/"+id+"/dismiss", now)).
		StatusOK()

	testutil.AssertResponse(t, ts.GETWithQuery("/insights", now)).
		StatusOK().
		NotContains(`"` + id + `"`)

	testutil.AssertResponse(t, ts.GETWithQuery("/insights", map[string]string{"now": "2024-06-15", "include_hidden": "true"})).
		StatusOK().
		Contains(`"` + id + `"`)
}

const testPassword = "correct horse battery"

// encryptedConfig writes the fixtures, encrypts the data directory and saves
// a dismissal through the encrypted state file, as a previous run would
func encryptedConfig(t *testing.T, dismissed string) *config.Config {
	t.Helper()

	c := testutil.TestConfig(t)
	testutil.WriteFile(t, c.DataDirectory, "bank.csv", bankCSV)
	testutil.WriteFile(t, c.SettingsDirectory, "budgets.json", budgetsJSON)
	testutil.WriteFile(t, c.SettingsDirectory, "categories.json", categoriesJSON)

	files, err := storage.New(c.DataDirectory)
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	if err := files.EnableEncryption(testPassword); err != nil {
		t.Fatalf("EnableEncryption: %v", err)
	}
	saved, err := insightstate.Open(files, c.StateFile(), zerolog.Nop())
	if err != nil {
		t.Fatalf("insightstate.Open: %v", err)
	}
	at := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	if err := saved.Dismiss(apphttp.DefaultUser, models.Insight{ID: dismissed}, at); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	return c
}

// TestRestartWithEncryptedState starts the server over an encrypted data
// directory that already holds insight state, unlocking from the environment
func TestRestartWithEncryptedState(t *testing.T) {
	const id = "budget-recommendation-over-b-food"
	c := encryptedConfig(t, id)
	t.Setenv("FININSIGHT_PASSWORD", testPassword)

	if err := SetupDependencies(c); err != nil {
		t.Fatalf("SetupDependencies: %v", err)
	}
	t.Cleanup(Shutdown)
	ts := testutil.NewTestServer(t, SetupRouter())
	t.Cleanup(ts.Close)

	testutil.AssertResponse(t, ts.GET("/api/health")).
		StatusOK().
		JSONField("unlocked", true)

	testutil.AssertResponse(t, ts.GETWithQuery("/insights", map[string]string{"now": "2024-06-15"})).
		StatusOK().
		Contains(`"trend-prediction-expenses-2024-07"`).
		NotContains(`"` + id + `"`)
}

// TestStartLockedThenUnlock starts without a password; insight requests
// answer 423 until the API unlocks storage, after which saved state applies
func TestStartLockedThenUnlock(t *testing.T) {
	const id = "budget-recommendation-over-b-food"
	c := encryptedConfig(t, id)
	t.Setenv("FININSIGHT_PASSWORD", "")

	if err := SetupDependencies(c); err != nil {
		t.Fatalf("SetupDependencies: %v", err)
	}
	t.Cleanup(Shutdown)
	ts := testutil.NewTestServer(t, SetupRouter())
	t.Cleanup(ts.Close)

	now := map[string]string{"now": "2024-06-15"}
	testutil.AssertResponse(t, ts.GETWithQuery("/insights", now)).
		Status(http.StatusLocked)

	body := strings.NewReader(`{"password":"` + testPassword + `"}`)
	testutil.AssertResponse(t, ts.POST("/api/unlock", "application/json", body)).
		StatusOK()

	testutil.AssertResponse(t, ts.GETWithQuery("/insights", now)).
		StatusOK().
		NotContains(`"` + id + `"`)
}
