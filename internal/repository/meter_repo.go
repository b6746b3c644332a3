package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"meter_reading/internal/models"
)

type MeterSQLite struct {
	db *sql.DB
}

func NewMeterSQLite(db *sql.DB) *MeterSQLite { return &MeterSQLite{db: db} }

var _ MeterRepo = (*MeterSQLite)(nil)

const (
	insertMeterSQL = `
		INSERT INTO meters (serial_number, meter_type, unit, location, organization_id, expected_reading, custom_prompt)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectMeterSQL = `SELECT id, serial_number, meter_type, unit, location, organization_id, expected_reading, custom_prompt FROM meters`

	updateMeterCalibrationSQL = `
		UPDATE meters SET serial_number = ?, meter_type = ?, expected_reading = ?, custom_prompt = ?
		WHERE id = ?
	`
)

func (r *MeterSQLite) Create(ctx context.Context, m models.Meter) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertMeterSQL,
		m.SerialNumber,
		m.MeterType,
		m.Unit,
		nullString(m.Location),
		m.OrganizationID,
		m.ExpectedReading,
		nullString(m.CustomPrompt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert meter %q: %w", m.SerialNumber, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for meter %q: %w", m.SerialNumber, err)
	}
	return id, nil
}

func (r *MeterSQLite) GetBySerial(ctx context.Context, serial string) (*models.Meter, error) {
	m, err := scanMeter(r.db.QueryRowContext(ctx, selectMeterSQL+` WHERE serial_number = ?`, serial))
	if err != nil {
		return nil, fmt.Errorf("select meter %q: %w", serial, err)
	}
	return m, nil
}

func (r *MeterSQLite) GetByID(ctx context.Context, id int64) (*models.Meter, error) {
	m, err := scanMeter(r.db.QueryRowContext(ctx, selectMeterSQL+` WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("select meter %d: %w", id, err)
	}
	return m, nil
}

// UpdateCalibration persists serial, type, expected reading and custom prompt.
func (r *MeterSQLite) UpdateCalibration(ctx context.Context, m models.Meter) error {
	_, err := r.db.ExecContext(ctx, updateMeterCalibrationSQL,
		m.SerialNumber,
		m.MeterType,
		m.ExpectedReading,
		nullString(m.CustomPrompt),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("update meter %d calibration: %w", m.ID, err)
	}
	return nil
}

func scanMeter(row rowScanner) (*models.Meter, error) {
	var (
		m        models.Meter
		location sql.NullString
		expected sql.NullFloat64
		prompt   sql.NullString
	)
	if err := row.Scan(&m.ID, &m.SerialNumber, &m.MeterType, &m.Unit, &location, &m.OrganizationID, &expected, &prompt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Location = location.String
	m.CustomPrompt = prompt.String
	if expected.Valid {
		v := expected.Float64
		m.ExpectedReading = &v
	}
	return &m, nil
}
