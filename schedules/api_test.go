package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/loomworks/loom-go/internal/repo/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	api := newSchedulesAPI(logger, memory.NewScheduleStorage())
	mux := http.NewServeMux()
	api.register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode body %q: %v", raw, err)
		}
	}
	return resp, decoded
}

const nightlyBody = `{"name":"nightly","cron_schedule":"0 6 * * *","status":"running"}`

func TestAddAndGetSchedule(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/repositories/analytics/schedules", nightlyBody)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status=%d, want 201 (body %v)", resp.StatusCode, body)
	}
	if body["repository_name"] != "analytics" || body["name"] != "nightly" {
		t.Fatalf("unexpected body %v", body)
	}

	resp, body = doRequest(t, http.MethodGet, srv.URL+"/api/v1/repositories/analytics/schedules/nightly", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
	if body["status"] != "RUNNING" {
		t.Fatalf("status=%v, want RUNNING", body["status"])
	}
}

func TestAddScheduleConflict(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/api/v1/repositories/analytics/schedules"

	if resp, _ := doRequest(t, http.MethodPost, url, nightlyBody); resp.StatusCode != http.StatusCreated {
		t.Fatalf("first add status=%d", resp.StatusCode)
	}
	resp, body := doRequest(t, http.MethodPost, url, nightlyBody)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status=%d, want 409", resp.StatusCode)
	}
	if body["error"] != "conflict" {
		t.Fatalf("error=%v, want conflict", body["error"])
	}
}

func TestGetScheduleNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/repositories/analytics/schedules/missing", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", resp.StatusCode)
	}
	if body["error"] != "not_found" {
		t.Fatalf("error=%v, want not_found", body["error"])
	}
}

func TestUpdateScheduleRequiresExisting(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/api/v1/repositories/analytics/schedules/nightly"

	resp, _ := doRequest(t, http.MethodPut, url, nightlyBody)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", resp.StatusCode)
	}

	if resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/repositories/analytics/schedules", nightlyBody); resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status=%d", resp.StatusCode)
	}
	resp, body := doRequest(t, http.MethodPut, url, `{"cron_schedule":"0 7 * * *","status":"stopped"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200 (body %v)", resp.StatusCode, body)
	}
	if body["cron_schedule"] != "0 7 * * *" || body["status"] != "STOPPED" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestDeleteSchedule(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/api/v1/repositories/analytics/schedules/nightly"

	resp, _ := doRequest(t, http.MethodDelete, url, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", resp.StatusCode)
	}

	if resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/repositories/analytics/schedules", nightlyBody); resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status=%d", resp.StatusCode)
	}
	resp, _ = doRequest(t, http.MethodDelete, url, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status=%d, want 204", resp.StatusCode)
	}
	resp, _ = doRequest(t, http.MethodGet, url, "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status=%d after delete, want 404", resp.StatusCode)
	}
}

func TestListSchedulesScoping(t *testing.T) {
	srv := newTestServer(t)

	if resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/repositories/analytics/schedules", nightlyBody); resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status=%d", resp.StatusCode)
	}
	if resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/repositories/reporting/schedules", nightlyBody); resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status=%d", resp.StatusCode)
	}

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/v1/schedules", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
	if all, _ := body["schedules"].([]any); len(all) != 2 {
		t.Fatalf("expected 2 schedules, got %v", body["schedules"])
	}

	resp, body = doRequest(t, http.MethodGet, srv.URL+"/api/v1/repositories/analytics/schedules", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d, want 200", resp.StatusCode)
	}
	if scoped, _ := body["schedules"].([]any); len(scoped) != 1 {
		t.Fatalf("expected 1 schedule for analytics, got %v", body["schedules"])
	}
}

func TestTickLifecycle(t *testing.T) {
	srv := newTestServer(t)

	if resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/v1/repositories/analytics/schedules", nightlyBody); resp.StatusCode != http.StatusCreated {
		t.Fatalf("add status=%d", resp.StatusCode)
	}

	ticksURL := srv.URL + "/api/v1/repositories/analytics/schedules/nightly/ticks"
	resp, body := doRequest(t, http.MethodPost, ticksURL, `{"status":"started"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create tick status=%d (body %v)", resp.StatusCode, body)
	}
	id, ok := body["id"].(float64)
	if !ok || id <= 0 {
		t.Fatalf("expected assigned tick id, got %v", body["id"])
	}
	runID, _ := body["run_id"].(string)
	if runID == "" {
		t.Fatalf("expected minted run id, got %v", body)
	}

	update := `{"schedule_name":"nightly","status":"success","run_id":"` + runID + `"}`
	resp, body = doRequest(t, http.MethodPut, srv.URL+"/api/v1/repositories/analytics/ticks/1", update)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update tick status=%d (body %v)", resp.StatusCode, body)
	}

	resp, body = doRequest(t, http.MethodGet, ticksURL, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list ticks status=%d", resp.StatusCode)
	}
	ticks, _ := body["ticks"].([]any)
	if len(ticks) != 1 {
		t.Fatalf("expected 1 tick, got %v", body["ticks"])
	}
	first, _ := ticks[0].(map[string]any)
	if first["status"] != "SUCCESS" || first["run_id"] != runID {
		t.Fatalf("unexpected tick %v", first)
	}
}

func TestCreateTickValidation(t *testing.T) {
	srv := newTestServer(t)
	ticksURL := srv.URL + "/api/v1/repositories/analytics/schedules/nightly/ticks"

	resp, body := doRequest(t, http.MethodPost, ticksURL, `{"status":"bogus"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", resp.StatusCode)
	}
	if body["error"] != "invalid_tick" {
		t.Fatalf("error=%v, want invalid_tick", body["error"])
	}
}

func TestUpdateTickRejectsBadID(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doRequest(t, http.MethodPut, srv.URL+"/api/v1/repositories/analytics/ticks/zero", `{"schedule_name":"nightly","status":"success"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", resp.StatusCode)
	}
	if body["error"] != "invalid_tick_id" {
		t.Fatalf("error=%v, want invalid_tick_id", body["error"])
	}
}

func TestInvalidJSON(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doRequest(t, http.MethodPost, srv.URL+"/api/v1/repositories/analytics/schedules", `{"name":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", resp.StatusCode)
	}
	if body["error"] != "invalid_json" {
		t.Fatalf("error=%v, want invalid_json", body["error"])
	}
}
