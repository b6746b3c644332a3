package service

import (
	"context"
	"fmt"
	"strings"

	"meter_reading/internal/capture"
	"meter_reading/internal/logger"
	"meter_reading/internal/models"
	"meter_reading/internal/repository"
)

// DeviceService provisions cameras.
type DeviceService struct {
	devices repository.DeviceRepo
	events  emitter
	log     *logger.Logger
}

func NewDeviceService(devices repository.DeviceRepo, events repository.EventRepo, log *logger.Logger) *DeviceService {
	log = orNop(log).Named("devices")
	return &DeviceService{devices: devices, events: emitter{repo: events, log: log}, log: log}
}

// Register provisions a device. Serials are stored in capture form
// (AA:BB -> AA-BB) so HTTP, MQTT and snapshots agree on one key.
// Registering a known serial returns the existing device and created=false.
func (s *DeviceService) Register(ctx context.Context, p RegisterDeviceParams) (*models.Device, bool, error) {
	serial := capture.NormalizeSerial(p.SerialNumber)
	if serial == "" {
		return nil, false, fmt.Errorf("%w: serial_number is required", ErrInvalidInput)
	}
	existing, err := s.devices.GetBySerial(ctx, serial)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	d := models.Device{
		SerialNumber:    serial,
		OrganizationID:  p.OrganizationID,
		FirmwareVersion: strings.TrimSpace(p.FirmwareVersion),
		Status:          models.DeviceProvisioning,
	}
	id, err := s.devices.Create(ctx, d)
	if err != nil {
		return nil, false, err
	}
	created, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if created == nil {
		return nil, false, fmt.Errorf("%w: id %d vanished after insert", ErrDeviceNotFound, id)
	}

	s.log.Infow("device_registered", "device_serial", serial, "device_id", id)
	s.events.emit(ctx, models.EventDeviceRegistered, 0, serial, "Device "+serial+" registered",
		map[string]any{"organization_id": p.OrganizationID, "firmware_version": d.FirmwareVersion})
	return created, true, nil
}
