package service

import (
	"context"
	"fmt"
	"time"

	"meter_reading/internal/capture"
	"meter_reading/internal/logger"
	"meter_reading/internal/models"
	"meter_reading/internal/repository"
)

// MonitorService tracks device heartbeats.
type MonitorService struct {
	devices      repository.DeviceRepo
	connectivity repository.ConnectivityRepo
	log          *logger.Logger
	now          func() time.Time
}

func NewMonitorService(devices repository.DeviceRepo, connectivity repository.ConnectivityRepo, log *logger.Logger) *MonitorService {
	return &MonitorService{
		devices:      devices,
		connectivity: connectivity,
		log:          orNop(log).Named("monitor"),
		now:          time.Now,
	}
}

// Record stores a heartbeat for the device with the given serial. A zero ts
// means "now". An offline device that reports again becomes active.
func (s *MonitorService) Record(ctx context.Context, serial string, ts time.Time, ip string, metadata map[string]any) error {
	serial = capture.NormalizeSerial(serial)
	d, err := s.devices.GetBySerial(ctx, serial)
	if err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("%w: %q", ErrDeviceNotFound, serial)
	}
	if ts.IsZero() {
		ts = s.now()
	}
	if err := s.connectivity.Upsert(ctx, models.ConnectivityRecord{
		DeviceID:  d.ID,
		LastSeen:  ts.UTC(),
		IPAddress: ip,
		Metadata:  metadata,
	}); err != nil {
		return err
	}
	if d.Status == models.DeviceOffline {
		if err := s.devices.UpdateStatus(ctx, d.ID, models.DeviceActive); err != nil {
			return err
		}
		s.log.Infow("device_back_online", "device_serial", serial)
	}
	s.log.Debugw("heartbeat_recorded", "device_serial", serial, "ip", ip)
	return nil
}

// IsRecentlyConnected reports whether the device's last heartbeat is within
// window. A device that never reported is not connected and has no last-seen time.
func (s *MonitorService) IsRecentlyConnected(ctx context.Context, deviceID int64, window time.Duration) (models.ConnectivityStatus, error) {
	rec, err := s.connectivity.Get(ctx, deviceID)
	if err != nil {
		return models.ConnectivityStatus{}, err
	}
	if rec == nil {
		return models.ConnectivityStatus{}, nil
	}
	lastSeen := rec.LastSeen.UTC()
	since := s.now().UTC().Sub(lastSeen).Seconds()
	return models.ConnectivityStatus{
		Connected:    since <= window.Seconds(),
		LastSeen:     &lastSeen,
		SecondsSince: &since,
	}, nil
}
