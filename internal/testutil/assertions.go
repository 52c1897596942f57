package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
)

// ResponseAssertion chains checks against one HTTP response. The body is read
// once, on first use.
type ResponseAssertion struct {
	t    *testing.T
	resp *http.Response
	body *string
}

// AssertResponse starts a chain of assertions on resp
func AssertResponse(t *testing.T, resp *http.Response) *ResponseAssertion {
	t.Helper()
	return &ResponseAssertion{t: t, resp: resp}
}

func (ra *ResponseAssertion) text() string {
	ra.t.Helper()
	if ra.body == nil {
		defer ra.resp.Body.Close()
		b, err := io.ReadAll(ra.resp.Body)
		if err != nil {
			ra.t.Fatalf("read response body: %v", err)
		}
		s := string(b)
		ra.body = &s
	}
	return *ra.body
}

// Status checks the status code
func (ra *ResponseAssertion) Status(code int) *ResponseAssertion {
	ra.t.Helper()
	if ra.resp.StatusCode != code {
		ra.t.Errorf("status = %d, want %d\nbody: %s", ra.resp.StatusCode, code, clip(ra.text()))
	}
	return ra
}

func (ra *ResponseAssertion) StatusOK() *ResponseAssertion {
	ra.t.Helper()
	return ra.Status(http.StatusOK)
}

// ContentType checks that the Content-Type header contains expected
func (ra *ResponseAssertion) ContentType(expected string) *ResponseAssertion {
	ra.t.Helper()
	if ct := ra.resp.Header.Get("Content-Type"); !strings.Contains(ct, expected) {
		ra.t.Errorf("Content-Type = %q, want it to contain %q", ct, expected)
	}
	return ra
}

func (ra *ResponseAssertion) ContentTypeJSON() *ResponseAssertion {
	ra.t.Helper()
	return ra.ContentType("application/json")
}

func (ra *ResponseAssertion) Contains(substr string) *ResponseAssertion {
	ra.t.Helper()
	return ra.ContainsAll(substr)
}

// ContainsAll checks the body for every substring, reporting each one missing
func (ra *ResponseAssertion) ContainsAll(substrs ...string) *ResponseAssertion {
	ra.t.Helper()
	body := ra.text()
	for _, s := range substrs {
		if !strings.Contains(body, s) {
			ra.t.Errorf("body does not contain %q\nbody: %s", s, clip(body))
		}
	}
	return ra
}

func (ra *ResponseAssertion) NotContains(substr string) *ResponseAssertion {
	ra.t.Helper()
	if strings.Contains(ra.text(), substr) {
		ra.t.Errorf("body unexpectedly contains %q", substr)
	}
	return ra
}

// JSON decodes the body into v and fails the test on malformed JSON
func (ra *ResponseAssertion) JSON(v interface{}) *ResponseAssertion {
	ra.t.Helper()
	body := ra.text()
	if err := json.Unmarshal([]byte(body), v); err != nil {
		ra.t.Fatalf("decode JSON: %v\nbody: %s", err, clip(body))
	}
	return ra
}

// JSONField compares a top-level field after decoding. Numbers decode as
// float64.
func (ra *ResponseAssertion) JSONField(key string, expected interface{}) *ResponseAssertion {
	ra.t.Helper()
	var fields map[string]interface{}
	ra.JSON(&fields)

	got, ok := fields[key]
	switch {
	case !ok:
		ra.t.Errorf("JSON field %q missing", key)
	case got != expected:
		ra.t.Errorf("JSON field %q = %v (%T), want %v (%T)", key, got, got, expected, expected)
	}
	return ra
}

func clip(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
