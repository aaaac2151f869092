package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"NetPulse/internal/config"
	"NetPulse/internal/coordinator"
	_ "NetPulse/internal/engine/impl/flow" // registers the flow report type
	"NetPulse/internal/ticker"
)

func newTestServer(t *testing.T) (*Server, *coordinator.Coordinator) {
	t.Helper()
	svc := ticker.NewService()
	coord := coordinator.New(coordinator.Conf{}, svc)
	if err := coord.Startup(); err != nil {
		t.Fatalf("coordinator startup failed: %v", err)
	}
	t.Cleanup(coord.Shutdown)

	return NewServer(config.APIConfig{ListenAddr: "127.0.0.1:0"}, coord, nil), coord
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)

	create := `{"name":"by_src","time_window":"60s","tick_count":6,"key_fields":["src_ip"]}`
	if rec := doRequest(t, s, "POST", "/api/v1/reports", create); rec.Code != http.StatusOK {
		t.Fatalf("create returned %d: %s", rec.Code, rec.Body.String())
	}

	// Duplicate create is a user error.
	if rec := doRequest(t, s, "POST", "/api/v1/reports", create); rec.Code != http.StatusBadRequest {
		t.Errorf("duplicate create returned %d, want 400", rec.Code)
	}

	if rec := doRequest(t, s, "GET", "/api/v1/reports/by_src/snapshot", ""); rec.Code != http.StatusOK {
		t.Errorf("snapshot returned %d: %s", rec.Code, rec.Body.String())
	}

	rec := doRequest(t, s, "GET", "/api/v1/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stats returned %d", rec.Code)
	}
	var stats []coordinator.HostStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if len(stats) != 1 || stats[0].ReportName != "by_src" {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if rec := doRequest(t, s, "DELETE", "/api/v1/reports/by_src", ""); rec.Code != http.StatusOK {
		t.Errorf("delete returned %d: %s", rec.Code, rec.Body.String())
	}

	if rec := doRequest(t, s, "GET", "/api/v1/reports/by_src/snapshot", ""); rec.Code != http.StatusNotFound {
		t.Errorf("snapshot of deleted report returned %d, want 404", rec.Code)
	}
}

func TestCreateReportValidation(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := doRequest(t, s, "POST", "/api/v1/reports", `{not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body returned %d, want 400", rec.Code)
	}

	bad := `{"name":"r","time_window":"60s","tick_count":6,"key_fields":["bogus"]}`
	if rec := doRequest(t, s, "POST", "/api/v1/reports", bad); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid key field returned %d, want 400", rec.Code)
	}

	unknownType := `{"type":"sketch","name":"r","time_window":"60s"}`
	if rec := doRequest(t, s, "POST", "/api/v1/reports", unknownType); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown report type returned %d, want 400", rec.Code)
	}
}

func TestDeleteUnknownReportOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, "DELETE", "/api/v1/reports/nope", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("delete returned %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unknown report: nope") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
