package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"meter_reading/internal/models"
)

type SessionSQLite struct {
	db *sql.DB
}

func NewSessionSQLite(db *sql.DB) *SessionSQLite {
	return &SessionSQLite{db: db}
}

var _ SessionRepo = (*SessionSQLite)(nil)

const (
	insertSessionSQL = `
		INSERT INTO installation_sessions (status, device_id, meter_id, installer_id, organization_id, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	selectSessionSQL = `
		SELECT id, status, device_id, meter_id, installer_id, organization_id, started_at, completed_at
		FROM installation_sessions WHERE id = ?
	`

	updateSessionStatusSQL = `UPDATE installation_sessions SET status = ?, completed_at = COALESCE(?, completed_at) WHERE id = ?`

	advanceSessionStatusSQL = `
		UPDATE installation_sessions SET status = ?
		WHERE id = ? AND status NOT IN ('completed', 'failed')
	`
)

// Create inserts a session. Status defaults to started and StartedAt to now (UTC).
func (r *SessionSQLite) Create(ctx context.Context, s models.InstallationSession) (int64, error) {
	if s.Status == "" {
		s.Status = models.StatusStarted
	}
	started := s.StartedAt
	if started.IsZero() {
		started = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, insertSessionSQL,
		string(s.Status),
		s.DeviceID,
		s.MeterID,
		s.InstallerID,
		s.OrganizationID,
		started.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert installation session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for installation session: %w", err)
	}
	return id, nil
}

// Get loads a session without its check results. Returns (nil, nil) if not found.
func (r *SessionSQLite) Get(ctx context.Context, id int64) (*models.InstallationSession, error) {
	var (
		s         models.InstallationSession
		status    string
		completed sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, selectSessionSQL, id).Scan(
		&s.ID,
		&status,
		&s.DeviceID,
		&s.MeterID,
		&s.InstallerID,
		&s.OrganizationID,
		&s.StartedAt,
		&completed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select installation session %d: %w", id, err)
	}
	s.Status = models.SessionStatus(status)
	s.StartedAt = s.StartedAt.UTC()
	if completed.Valid {
		t := completed.Time.UTC()
		s.CompletedAt = &t
	}
	return &s, nil
}

// UpdateStatus sets the status; completedAt is only written when non-nil.
func (r *SessionSQLite) UpdateStatus(ctx context.Context, id int64, status models.SessionStatus, completedAt *time.Time) error {
	var completed any
	if completedAt != nil {
		completed = completedAt.UTC()
	}
	if _, err := r.db.ExecContext(ctx, updateSessionStatusSQL, string(status), completed, id); err != nil {
		return fmt.Errorf("update installation session %d status: %w", id, err)
	}
	return nil
}

// Advance sets the status of a session that is not terminal yet. It reports
// false when the session is missing or already completed/failed.
func (r *SessionSQLite) Advance(ctx context.Context, id int64, status models.SessionStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, advanceSessionStatusSQL, string(status), id)
	if err != nil {
		return false, fmt.Errorf("advance installation session %d status: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("advance installation session %d rows affected: %w", id, err)
	}
	return n > 0, nil
}
