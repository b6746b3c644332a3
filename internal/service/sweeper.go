package service

import (
	"context"
	"time"

	"meter_reading/internal/logger"
	"meter_reading/internal/models"
	"meter_reading/internal/repository"
)

// SweeperService marks active devices offline once their heartbeat is stale.
type SweeperService struct {
	devices repository.DeviceRepo
	events  emitter
	window  time.Duration
	log     *logger.Logger
}

func NewSweeperService(devices repository.DeviceRepo, events repository.EventRepo, window time.Duration, log *logger.Logger) *SweeperService {
	log = orNop(log).Named("sweeper")
	return &SweeperService{
		devices: devices,
		events:  emitter{repo: events, log: log},
		window:  window,
		log:     log,
	}
}

// Run ticks at the given interval until ctx is canceled.
func (s *SweeperService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if _, err := s.Sweep(ctx, now); err != nil && ctx.Err() == nil {
				s.log.Warnw("sweep_failed", "error", err)
			}
		}
	}
}

// Sweep marks every active device not seen since now-window as offline and
// returns how many were changed.
func (s *SweeperService) Sweep(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.UTC().Add(-s.window)
	stale, err := s.devices.ListStale(ctx, models.DeviceActive, cutoff)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range stale {
		if err := s.devices.UpdateStatus(ctx, d.ID, models.DeviceOffline); err != nil {
			return n, err
		}
		n++
		s.log.Infow("device_offline", "device_serial", d.SerialNumber)
		s.events.emit(ctx, models.EventDeviceOffline, 0, d.SerialNumber,
			"No heartbeat from "+d.SerialNumber+" since "+cutoff.Format(time.RFC3339),
			map[string]any{"window_seconds": s.window.Seconds()})
	}
	return n, nil
}
