package repository

import (
	"context"
	"database/sql"
	"time"

	"meter_reading/internal/models"
)

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// DeviceRepo stores camera devices. Lookups return (nil, nil) when absent.
type DeviceRepo interface {
	Create(ctx context.Context, d models.Device) (int64, error)
	GetBySerial(ctx context.Context, serial string) (*models.Device, error)
	GetByID(ctx context.Context, id int64) (*models.Device, error)
	UpdateStatus(ctx context.Context, id int64, status models.DeviceStatus) error
	Activate(ctx context.Context, id, meterID int64) error
	ListStale(ctx context.Context, status models.DeviceStatus, seenBefore time.Time) ([]models.Device, error)
}

// MeterRepo stores installation targets. Lookups return (nil, nil) when absent.
type MeterRepo interface {
	Create(ctx context.Context, m models.Meter) (int64, error)
	GetBySerial(ctx context.Context, serial string) (*models.Meter, error)
	GetByID(ctx context.Context, id int64) (*models.Meter, error)
	UpdateCalibration(ctx context.Context, m models.Meter) error
}

// SessionRepo stores installation sessions without their check results.
type SessionRepo interface {
	Create(ctx context.Context, s models.InstallationSession) (int64, error)
	Get(ctx context.Context, id int64) (*models.InstallationSession, error)
	UpdateStatus(ctx context.Context, id int64, status models.SessionStatus, completedAt *time.Time) error
	// Advance never moves a completed or failed session; ok is false then.
	Advance(ctx context.Context, id int64, status models.SessionStatus) (ok bool, err error)
}

// CheckRepo is the append-only audit trail of validation checks.
type CheckRepo interface {
	Append(ctx context.Context, r models.ValidationCheckResult) (int64, error)
	ListBySession(ctx context.Context, sessionID int64) ([]models.ValidationCheckResult, error)
}

// ConnectivityRepo keeps exactly one last-seen record per device.
type ConnectivityRepo interface {
	Upsert(ctx context.Context, r models.ConnectivityRecord) error
	Get(ctx context.Context, deviceID int64) (*models.ConnectivityRecord, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.InstallationEvent) error
	List(ctx context.Context, f EventFilter) ([]models.InstallationEvent, error)
}

// EventFilter narrows event listing. Zero values mean "no bound".
type EventFilter struct {
	From      time.Time
	To        time.Time
	Type      string
	SessionID int64
}

type Repository struct {
	Auth         Authorization
	Devices      DeviceRepo
	Meters       MeterRepo
	Sessions     SessionRepo
	Checks       CheckRepo
	Connectivity ConnectivityRepo
	Events       EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Auth:         NewUserRepository(db),
		Devices:      NewDeviceSQLite(db),
		Meters:       NewMeterSQLite(db),
		Sessions:     NewSessionSQLite(db),
		Checks:       NewCheckSQLite(db),
		Connectivity: NewConnectivitySQLite(db),
		Events:       NewEventSQLite(db),
	}
}
