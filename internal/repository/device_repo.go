package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"meter_reading/internal/models"
)

type DeviceSQLite struct {
	db *sql.DB
}

func NewDeviceSQLite(db *sql.DB) *DeviceSQLite { return &DeviceSQLite{db: db} }

var _ DeviceRepo = (*DeviceSQLite)(nil)

const (
	insertDeviceSQL = `INSERT INTO devices (serial_number, organization_id, firmware_version, status, created_at) VALUES (?, ?, ?, ?, ?)`

	selectDeviceSQL = `SELECT id, serial_number, organization_id, firmware_version, status, meter_id, created_at FROM devices`

	updateDeviceStatusSQL = `UPDATE devices SET status = ? WHERE id = ?`
	activateDeviceSQL     = `UPDATE devices SET status = ?, meter_id = ? WHERE id = ?`

	selectStaleDevicesSQL = `
		SELECT d.id, d.serial_number, d.organization_id, d.firmware_version, d.status, d.meter_id, d.created_at
		FROM devices d
		LEFT JOIN device_connectivity c ON c.device_id = d.id
		WHERE d.status = ? AND (c.last_seen IS NULL OR c.last_seen < ?)
		ORDER BY d.id ASC
	`
)

// Create inserts a device and returns its ID. CreatedAt defaults to now (UTC).
func (r *DeviceSQLite) Create(ctx context.Context, d models.Device) (int64, error) {
	created := d.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	if d.Status == "" {
		d.Status = models.DeviceProvisioning
	}
	res, err := r.db.ExecContext(ctx, insertDeviceSQL,
		d.SerialNumber, d.OrganizationID, nullString(d.FirmwareVersion), string(d.Status), created.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert device %q: %w", d.SerialNumber, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for device %q: %w", d.SerialNumber, err)
	}
	return id, nil
}

func (r *DeviceSQLite) GetBySerial(ctx context.Context, serial string) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, selectDeviceSQL+` WHERE serial_number = ?`, serial))
	if err != nil {
		return nil, fmt.Errorf("select device %q: %w", serial, err)
	}
	return d, nil
}

func (r *DeviceSQLite) GetByID(ctx context.Context, id int64) (*models.Device, error) {
	d, err := scanDevice(r.db.QueryRowContext(ctx, selectDeviceSQL+` WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("select device %d: %w", id, err)
	}
	return d, nil
}

func (r *DeviceSQLite) UpdateStatus(ctx context.Context, id int64, status models.DeviceStatus) error {
	if _, err := r.db.ExecContext(ctx, updateDeviceStatusSQL, string(status), id); err != nil {
		return fmt.Errorf("update device %d status: %w", id, err)
	}
	return nil
}

// Activate marks the device active and links it to the meter it photographs.
func (r *DeviceSQLite) Activate(ctx context.Context, id, meterID int64) error {
	if _, err := r.db.ExecContext(ctx, activateDeviceSQL, string(models.DeviceActive), meterID, id); err != nil {
		return fmt.Errorf("activate device %d: %w", id, err)
	}
	return nil
}

// ListStale returns devices in the given status whose last heartbeat is older than
// seenBefore, or that never sent one.
func (r *DeviceSQLite) ListStale(ctx context.Context, status models.DeviceStatus, seenBefore time.Time) ([]models.Device, error) {
	rows, err := r.db.QueryContext(ctx, selectStaleDevicesSQL, string(status), seenBefore.UTC())
	if err != nil {
		return nil, fmt.Errorf("list stale devices: %w", err)
	}
	defer rows.Close()

	var out []models.Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stale device: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanDevice returns (nil, nil) on sql.ErrNoRows.
func scanDevice(row rowScanner) (*models.Device, error) {
	var (
		d        models.Device
		firmware sql.NullString
		status   string
		meterID  sql.NullInt64
	)
	if err := row.Scan(&d.ID, &d.SerialNumber, &d.OrganizationID, &firmware, &status, &meterID, &d.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	d.FirmwareVersion = firmware.String
	d.Status = models.DeviceStatus(status)
	if meterID.Valid {
		id := meterID.Int64
		d.MeterID = &id
	}
	d.CreatedAt = d.CreatedAt.UTC()
	return &d, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
