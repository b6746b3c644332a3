package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"testing"
	"time"

	"meter_reading/internal/config"
	"meter_reading/internal/models"
	"meter_reading/internal/telemetry"
)

func newTestMonitor(t *testing.T, now time.Time) (*MonitorService, *memRepos, int64) {
	t.Helper()
	repos := newMemRepos()
	id, _ := repos.devices.Create(context.Background(), models.Device{SerialNumber: "cam-01", Status: models.DeviceActive})
	m := NewMonitorService(repos.Devices, repos.Connectivity, nil)
	m.now = func() time.Time { return now }
	return m, repos, id
}

func TestMonitor_RecordUnknownDevice(t *testing.T) {
	m, _, _ := newTestMonitor(t, time.Now())
	err := m.Record(context.Background(), "ghost", time.Time{}, "", nil)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestMonitor_RecordUpsertsOneRow(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	m, repos, id := newTestMonitor(t, now)
	ctx := context.Background()

	if err := m.Record(ctx, "cam-01", now.Add(-time.Minute), "10.0.0.2", map[string]any{"rssi": -60}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := m.Record(ctx, " cam-01 ", time.Time{}, "10.0.0.3", nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(repos.conn.recs) != 1 {
		t.Fatalf("expected one connectivity row, got %d", len(repos.conn.recs))
	}
	rec := repos.conn.recs[id]
	if !rec.LastSeen.Equal(now) || rec.IPAddress != "10.0.0.3" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestMonitor_RecordBringsOfflineDeviceBack(t *testing.T) {
	m, repos, id := newTestMonitor(t, time.Now())
	ctx := context.Background()
	_ = repos.devices.UpdateStatus(ctx, id, models.DeviceOffline)

	if err := m.Record(ctx, "cam-01", time.Time{}, "", nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
	d, _ := repos.devices.GetByID(ctx, id)
	if d.Status != models.DeviceActive {
		t.Fatalf("status = %s, want active", d.Status)
	}
}

func TestMonitor_IsRecentlyConnected(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Minute

	tests := []struct {
		name       string
		lastSeen   *time.Time
		wantConn   bool
		wantSince  float64
		wantNoSeen bool
	}{
		{name: "never seen", wantNoSeen: true},
		{name: "fresh", lastSeen: ptrTime(now.Add(-30 * time.Second)), wantConn: true, wantSince: 30},
		{name: "exactly at window", lastSeen: ptrTime(now.Add(-window)), wantConn: true, wantSince: 300},
		{name: "stale", lastSeen: ptrTime(now.Add(-10 * time.Minute)), wantSince: 600},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, repos, id := newTestMonitor(t, now)
			if tc.lastSeen != nil {
				repos.conn.recs[id] = models.ConnectivityRecord{DeviceID: id, LastSeen: *tc.lastSeen}
			}
			st, err := m.IsRecentlyConnected(context.Background(), id, window)
			if err != nil {
				t.Fatalf("IsRecentlyConnected: %v", err)
			}
			if st.Connected != tc.wantConn {
				t.Fatalf("connected = %v, want %v", st.Connected, tc.wantConn)
			}
			if tc.wantNoSeen {
				if st.LastSeen != nil || st.SecondsSince != nil {
					t.Fatalf("expected no last-seen data, got %+v", st)
				}
				return
			}
			if st.SecondsSince == nil || *st.SecondsSince != tc.wantSince {
				t.Fatalf("seconds since = %v, want %v", st.SecondsSince, tc.wantSince)
			}
		})
	}
}

func TestMonitor_IsRecentlyConnectedRepoError(t *testing.T) {
	m, repos, id := newTestMonitor(t, time.Now())
	repos.conn.err = errBoom
	if _, err := m.IsRecentlyConnected(context.Background(), id, time.Minute); !errors.Is(err, errBoom) {
		t.Fatalf("expected repo error, got %v", err)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

type discardSink struct{ calls int }

func (d *discardSink) Save(string, int64, string, []byte) (string, error) {
	d.calls++
	return "uploads/snapshot.jpeg", nil
}

func TestMonitor_MACSerialMatchesAcrossTransports(t *testing.T) {
	repos := newMemRepos()
	ctx := context.Background()
	devices := NewDeviceService(repos.Devices, repos.Events, nil)
	monitor := NewMonitorService(repos.Devices, repos.Connectivity, nil)

	d, _, err := devices.Register(ctx, RegisterDeviceParams{SerialNumber: "AA:BB:CC:DD:EE:FF"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if d.SerialNumber != "AA-BB-CC-DD-EE-FF" {
		t.Fatalf("serial stored as %q", d.SerialNumber)
	}
	again, created, err := devices.Register(ctx, RegisterDeviceParams{SerialNumber: "AA-BB-CC-DD-EE-FF"})
	if err != nil || created || again.ID != d.ID {
		t.Fatalf("dash form registered a second device: %+v created=%v err=%v", again, created, err)
	}

	// HTTP heartbeat with the colon form.
	if err := monitor.Record(ctx, "AA:BB:CC:DD:EE:FF", time.Time{}, "10.0.0.9", nil); err != nil {
		t.Fatalf("Record: %v", err)
	}

	// MQTT telemetry for the same camera.
	sink := &discardSink{}
	l := telemetry.NewListener(config.MQTTConfig{}, sink, monitor, nil)
	img := base64.StdEncoding.EncodeToString([]byte("jpeg"))
	ts := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	payload := `{"ts":` + strconv.FormatInt(ts.UnixMilli(), 10) + `,"values":{"devMac":"AA:BB:CC:DD:EE:FF","snapType":"auto","image":"` + img + `"}}`
	if err := l.Handle(ctx, []byte(payload)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if sink.calls != 1 {
		t.Fatalf("snapshot not stored")
	}
	rec := repos.conn.recs[d.ID]
	if !rec.LastSeen.Equal(ts) {
		t.Fatalf("last seen = %v, want %v", rec.LastSeen, ts)
	}
}
