package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"meter_reading/internal/models"
	"meter_reading/internal/service"
)

func doAuthed(t *testing.T, r http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestLogsHandler_ListAndValidation(t *testing.T) {
	auth := &mockAuth{parseID: 99}
	now := time.Now().UTC().Truncate(time.Second)
	sid := int64(4)
	events := []models.InstallationEvent{
		{EventID: "e1", OccurredAt: now, Type: models.EventSessionStarted, SessionID: &sid, Description: "start"},
		{EventID: "e2", OccurredAt: now.Add(1 * time.Second), Type: models.EventPipelineRun, SessionID: &sid, Description: "run"},
	}
	logs := &mockEventLog{resp: events}
	s := &service.Service{
		Authorization: auth,
		EventLog:      logs,
	}
	r := newTestRouter(s)

	// Invalid 'from' → 400
	if w := doAuthed(t, r, http.MethodGet, "/api/v1/logs?from=notatime"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}
	// Invalid session id → 400
	if w := doAuthed(t, r, http.MethodGet, "/api/v1/logs?session_id=abc"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'session_id', got %d", w.Code)
	}
	// Reversed range → 400
	if w := doAuthed(t, r, http.MethodGet, "/api/v1/logs?from=2025-02-01&to=2025-01-01"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 reversed range, got %d", w.Code)
	}
	if logs.called != 0 {
		t.Fatalf("service called on invalid query")
	}

	// Valid range, type and session (lowercase type is normalized to upper)
	q := "/api/v1/logs?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) +
		"&type=pipeline_run&session_id=4"
	w := doAuthed(t, r, http.MethodGet, q)
	if w.Code != http.StatusOK {
		t.Fatalf("logs status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count  int                        `json:"count"`
		Events []models.InstallationEvent `json:"events"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Events) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if logs.last.Type != models.EventPipelineRun || logs.last.SessionID != 4 {
		t.Fatalf("unexpected filter: %+v", logs.last)
	}
	if !logs.last.From.Equal(now) {
		t.Fatalf("from = %v, want %v", logs.last.From, now)
	}
}

func TestLogsHandler_DateOnlyToIsEndOfDay(t *testing.T) {
	logs := &mockEventLog{}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: logs})

	if w := doAuthed(t, r, http.MethodGet, "/api/v1/logs?to=2025-08-31"); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	want := time.Date(2025, 8, 31, 23, 59, 59, 999999999, time.UTC)
	if !logs.last.To.Equal(want) {
		t.Fatalf("to = %v, want %v", logs.last.To, want)
	}
}

func TestLogsHandler_ServiceError(t *testing.T) {
	logs := &mockEventLog{err: errors.New("db down")}
	r := newTestRouter(&service.Service{Authorization: &mockAuth{parseID: 1}, EventLog: logs})

	if w := doAuthed(t, r, http.MethodGet, "/api/v1/logs"); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestParseQueryTime(t *testing.T) {
	cases := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2025-08-27T15:04:05+02:00", time.Date(2025, 8, 27, 13, 4, 5, 0, time.UTC), false},
		{"2025-08-27 15:04:05", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), false},
		{"2025-08-27", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC), false},
		{"27/08/2025", time.Time{}, true},
	}
	for _, tc := range cases {
		got, err := parseQueryTime(tc.in)
		if (err != nil) != tc.wantErr {
			t.Fatalf("parseQueryTime(%q) err = %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("parseQueryTime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
