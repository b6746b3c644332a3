package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"meter_reading/internal/models"
)

type ConnectivitySQLite struct {
	db *sql.DB
}

func NewConnectivitySQLite(db *sql.DB) *ConnectivitySQLite {
	return &ConnectivitySQLite{db: db}
}

var _ ConnectivityRepo = (*ConnectivitySQLite)(nil)

const (
	upsertConnectivitySQL = `
		INSERT INTO device_connectivity (device_id, last_seen, ip_address, meta)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			last_seen=excluded.last_seen,
			ip_address=excluded.ip_address,
			meta=excluded.meta
	`

	selectConnectivitySQL = `
		SELECT device_id, last_seen, ip_address, meta
		FROM device_connectivity WHERE device_id = ?
	`
)

// Upsert replaces the single connectivity row of a device.
func (r *ConnectivitySQLite) Upsert(ctx context.Context, rec models.ConnectivityRecord) error {
	meta, err := marshalDetails(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal connectivity metadata: %w", err)
	}
	seen := rec.LastSeen
	if seen.IsZero() {
		seen = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, upsertConnectivitySQL,
		rec.DeviceID,
		seen.UTC(),
		nullString(rec.IPAddress),
		meta,
	)
	if err != nil {
		return fmt.Errorf("upsert connectivity for device %d: %w", rec.DeviceID, err)
	}
	return nil
}

// Get returns (nil, nil) when the device never reported.
func (r *ConnectivitySQLite) Get(ctx context.Context, deviceID int64) (*models.ConnectivityRecord, error) {
	var (
		rec  models.ConnectivityRecord
		ip   sql.NullString
		meta sql.NullString
	)
	err := r.db.QueryRowContext(ctx, selectConnectivitySQL, deviceID).Scan(&rec.DeviceID, &rec.LastSeen, &ip, &meta)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select connectivity for device %d: %w", deviceID, err)
	}
	rec.LastSeen = rec.LastSeen.UTC()
	rec.IPAddress = ip.String
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode connectivity metadata: %w", err)
		}
	}
	return &rec, nil
}
