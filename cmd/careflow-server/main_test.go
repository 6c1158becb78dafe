package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/careflow/careflow/internal/config"
	"github.com/careflow/careflow/internal/platform/db"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            "test",
		StorageBackend: config.BackendMemory,
		DBMaxConns:     1,
		CORSOrigins:    []string{"http://localhost:3000"},
		RequestTimeout: 5 * time.Second,
		GeneratorTopN:  3,
		LookupCacheTTL: time.Minute,
		SyncMaxRetries: 1,
		AnalyticsSeed:  42,
	}
}

func newTestServer(t *testing.T) *app {
	t.Helper()
	a, err := buildApp(context.Background(), memoryConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("buildApp: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

func do(t *testing.T, a *app, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	a.routes().ServeHTTP(rec, req)
	return rec
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := rootCmd()
	want := map[string][]string{
		"serve":    nil,
		"migrate":  {"up", "status"},
		"steps":    {"seed", "sync"},
		"flows":    {"verify-legacy"},
		"generate": {"comprehensive"},
	}
	for name, subs := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
			continue
		}
		for _, sub := range subs {
			sc, _, err := root.Find([]string{name, sub})
			if err != nil || sc.Name() != sub {
				t.Errorf("command %q %q not registered", name, sub)
			}
		}
	}
}

func TestHealth(t *testing.T) {
	a := newTestServer(t)
	rec := do(t, a, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"storage":"memory"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestMemoryBackend_EndToEnd(t *testing.T) {
	a := newTestServer(t)

	if rec := do(t, a, http.MethodPost, "/api/v1/steps/seed"); rec.Code != http.StatusOK && rec.Code != http.StatusCreated {
		t.Fatalf("seed: expected success, got %d: %s", rec.Code, rec.Body.String())
	}

	rec := do(t, a, http.MethodPost, "/api/v1/generator/comprehensive")
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var report struct {
		TotalCreated int `json:"total_created"`
		TotalFailed  int `json:"total_failed"`
	}
	json.Unmarshal(rec.Body.Bytes(), &report)
	// no clinical database: only the laboratory, imaging and emergency flows
	if report.TotalCreated != 3 || report.TotalFailed != 0 {
		t.Errorf("unexpected report %s", rec.Body.String())
	}

	rec = do(t, a, http.MethodPost, "/api/v1/steps/sync")
	if rec.Code != http.StatusOK {
		t.Fatalf("sync: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, a, http.MethodPost, "/api/v1/steps/sync")
	var second struct {
		TotalCreated int `json:"total_created"`
	}
	json.Unmarshal(rec.Body.Bytes(), &second)
	if second.TotalCreated != 0 {
		t.Errorf("second sync created %d steps", second.TotalCreated)
	}

	rec = do(t, a, http.MethodGet, "/api/v1/flows?limit=10")
	var page struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 3 {
		t.Errorf("expected 3 flows, got %d", page.Total)
	}

	for _, path := range []string{"/api/v1/analytics/demand", "/api/v1/analytics/trends",
		"/api/v1/analytics/optimization", "/api/v1/analytics/dashboard", "/api/v1/referral-criteria"} {
		if rec := do(t, a, http.MethodGet, path); rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestListFlows_RejectsBadLimit(t *testing.T) {
	a := newTestServer(t)
	rec := do(t, a, http.MethodGet, "/api/v1/flows?limit=5000")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestPrintMigrationStatus(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	printMigrationStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "careflow", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "referral_seed"},
	})
	out := buf.String()
	if !strings.Contains(out, "2026-03-01 09:30:00") {
		t.Errorf("missing applied time in %q", out)
	}
	if !strings.Contains(out, "pending") {
		t.Errorf("missing pending row in %q", out)
	}
}
