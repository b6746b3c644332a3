package service

import (
	"context"
	"testing"
	"time"

	"meter_reading/internal/models"
)

func TestSweeper_MarksStaleActiveDevicesOffline(t *testing.T) {
	now := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	repos := newMemRepos()
	ctx := context.Background()

	fresh, _ := repos.devices.Create(ctx, models.Device{SerialNumber: "fresh", Status: models.DeviceActive})
	stale, _ := repos.devices.Create(ctx, models.Device{SerialNumber: "stale", Status: models.DeviceActive})
	silent, _ := repos.devices.Create(ctx, models.Device{SerialNumber: "silent", Status: models.DeviceActive})
	prov, _ := repos.devices.Create(ctx, models.Device{SerialNumber: "new", Status: models.DeviceProvisioning})
	repos.devices.lastSee[fresh] = now.Add(-time.Minute)
	repos.devices.lastSee[stale] = now.Add(-time.Hour)

	s := NewSweeperService(repos.Devices, repos.Events, 5*time.Minute, nil)
	n, err := s.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("swept %d devices, want 2", n)
	}

	want := map[int64]models.DeviceStatus{
		fresh:  models.DeviceActive,
		stale:  models.DeviceOffline,
		silent: models.DeviceOffline,
		prov:   models.DeviceProvisioning,
	}
	for id, st := range want {
		d, _ := repos.devices.GetByID(ctx, id)
		if d.Status != st {
			t.Fatalf("device %s status = %s, want %s", d.SerialNumber, d.Status, st)
		}
	}

	if len(repos.events.appended) != 2 {
		t.Fatalf("expected 2 DEVICE_OFFLINE events, got %d", len(repos.events.appended))
	}
	for _, e := range repos.events.appended {
		if e.Type != models.EventDeviceOffline || e.SessionID != nil {
			t.Fatalf("unexpected event: %+v", e)
		}
	}

	// Offline devices are not swept again.
	if n, _ := s.Sweep(ctx, now); n != 0 {
		t.Fatalf("second sweep changed %d devices", n)
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	repos := newMemRepos()
	s := NewSweeperService(repos.Devices, repos.Events, time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
