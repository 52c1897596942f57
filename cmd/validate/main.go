// Package main smoke-tests a running insight server by hitting every JSON
// endpoint and checking the response shape.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"time"

	"fininsight/internal/models"
)

// check is one GET request and the top-level JSON keys its response must carry
type check struct {
	path  string
	query neturl.Values
	keys  []string
}

func checks() []check {
	list := []check{
		{path: "/api/health", keys: []string{"status", "encrypted", "unlocked"}},
		{path: "/api/version", keys: []string{"version", "goVersion"}},
		{path: "/insights", keys: []string{"run_id", "user_id", "count", "insights"}},
		{path: "/insights", query: neturl.Values{"include_hidden": {"true"}}, keys: []string{"insights"}},
		{path: "/insights/recurring", keys: []string{"user_id", "recurring"}},
		{path: "/insights/trends", keys: []string{"user_id", "months"}},
	}
	for _, t := range models.InsightTypes {
		list = append(list, check{path: "/insights/type/" + string(t), keys: []string{"count", "insights"}})
	}
	return list
}

func (c check) url(base, user string) string {
	q := neturl.Values{}
	for k, v := range c.query {
		q[k] = v
	}
	if user != "" && c.path != "/api/health" && c.path != "/api/version" {
		q.Set("user", user)
	}
	if len(q) == 0 {
		return base + c.path
	}
	return base + c.path + "?" + q.Encode()
}

func main() {
	base := flag.String("url", "http://localhost:8080", "base URL of the server")
	user := flag.String("user", "", "user id for insight endpoints")
	verbose := flag.Bool("v", false, "print passing checks too")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	flag.Parse()

	client := &http.Client{Timeout: *timeout}
	list := checks()
	fmt.Printf("Validating %s (%d checks)\n\n", *base, len(list))

	failed := 0
	for _, c := range list {
		target := c.url(*base, *user)
		start := time.Now()
		err := run(client, target, c.keys)
		elapsed := time.Since(start).Round(time.Millisecond)

		switch {
		case err != nil:
			failed++
			fmt.Printf("FAIL %s\n     %v\n", target, err)
		case *verbose:
			fmt.Printf("ok   %s (%v)\n", target, elapsed)
		}
	}

	fmt.Printf("\n%d passed, %d failed\n", len(list)-failed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

func run(client *http.Client, target string, keys []string) error {
	resp, err := client.Get(target)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, body)
	}
	return hasKeys(body, keys)
}

// hasKeys reports an error unless body is a JSON object containing every key
func hasKeys(body []byte, keys []string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return fmt.Errorf("invalid JSON object: %w", err)
	}
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return fmt.Errorf("missing key %q", k)
		}
	}
	return nil
}
