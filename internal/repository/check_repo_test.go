package repository

import (
	"regexp"
	"testing"
	"time"

	"meter_reading/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

var checkColumns = []string{"id", "session_id", "check_type", "passed", "confidence", "message", "details", "checked_at"}

func TestCheckSQLite_Append(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(insertCheckSQL)).
		WithArgs(int64(4), "ocr", true, 0.9, "reading 123.4", `{"rule":"remote_agreement"}`, at).
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertCheckSQL)).
		WithArgs(int64(4), "connection", false, 0.0, "offline", nil, at).
		WillReturnResult(sqlmock.NewResult(32, 1))

	repo := NewCheckSQLite(db)
	id, err := repo.Append(ctx(t), models.ValidationCheckResult{
		SessionID: 4, CheckType: models.CheckOCR, Passed: true, Confidence: 0.9,
		Message: "reading 123.4", Details: map[string]any{"rule": "remote_agreement"}, CheckedAt: at,
	})
	if err != nil || id != 31 {
		t.Fatalf("Append ocr: id=%d err=%v", id, err)
	}
	id, err = repo.Append(ctx(t), models.ValidationCheckResult{
		SessionID: 4, CheckType: models.CheckConnection, Message: "offline", CheckedAt: at,
	})
	if err != nil || id != 32 {
		t.Fatalf("Append connection: id=%d err=%v", id, err)
	}
}

func TestCheckSQLite_ListBySession(t *testing.T) {
	db, mock := newMockDB(t)
	at := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectChecksBySessionSQL)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(checkColumns).
			AddRow(int64(1), int64(4), "connection", true, 1.0, "online", `{"seconds_since_last_seen":12}`, at).
			AddRow(int64(2), int64(4), "fov", true, 0.95, "ok", nil, at.Add(time.Second)))

	got, err := NewCheckSQLite(db).ListBySession(ctx(t), 4)
	if err != nil {
		t.Fatalf("ListBySession: %v", err)
	}
	if len(got) != 2 || got[0].CheckType != models.CheckConnection || got[1].CheckType != models.CheckFOV {
		t.Fatalf("unexpected checks: %+v", got)
	}
	if v, ok := got[0].Details["seconds_since_last_seen"].(float64); !ok || v != 12 {
		t.Fatalf("details not decoded: %#v", got[0].Details)
	}
	if got[1].Details != nil {
		t.Fatalf("expected nil details, got %#v", got[1].Details)
	}
}

func TestCheckSQLite_ListBySession_BadDetails(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectChecksBySessionSQL)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(checkColumns).
			AddRow(int64(1), int64(4), "glare", false, 0.2, "glare", `{not json`, time.Now()))

	if _, err := NewCheckSQLite(db).ListBySession(ctx(t), 4); err == nil {
		t.Fatal("expected decode error")
	}
}
