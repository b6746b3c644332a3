package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"meter_reading/internal/models"
)

type CheckSQLite struct {
	db *sql.DB
}

func NewCheckSQLite(db *sql.DB) *CheckSQLite { return &CheckSQLite{db: db} }

var _ CheckRepo = (*CheckSQLite)(nil)

const (
	insertCheckSQL = `
		INSERT INTO validation_checks (session_id, check_type, passed, confidence, message, details, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectChecksBySessionSQL = `
		SELECT id, session_id, check_type, passed, confidence, message, details, checked_at
		FROM validation_checks WHERE session_id = ?
		ORDER BY checked_at ASC, id ASC
	`
)

// marshalDetails converts the details map to a JSON string; empty maps are stored as NULL.
func marshalDetails(details map[string]any) (*string, error) {
	if len(details) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(details)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// Append inserts one check record. Records are never updated afterwards.
func (r *CheckSQLite) Append(ctx context.Context, c models.ValidationCheckResult) (int64, error) {
	details, err := marshalDetails(c.Details)
	if err != nil {
		return 0, fmt.Errorf("marshal %s check details: %w", c.CheckType, err)
	}
	checked := c.CheckedAt
	if checked.IsZero() {
		checked = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, insertCheckSQL,
		c.SessionID,
		string(c.CheckType),
		c.Passed,
		c.Confidence,
		c.Message,
		details,
		checked.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert %s check for session %d: %w", c.CheckType, c.SessionID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for %s check: %w", c.CheckType, err)
	}
	return id, nil
}

// ListBySession returns every check ever recorded for the session, oldest first.
func (r *CheckSQLite) ListBySession(ctx context.Context, sessionID int64) ([]models.ValidationCheckResult, error) {
	rows, err := r.db.QueryContext(ctx, selectChecksBySessionSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list checks for session %d: %w", sessionID, err)
	}
	defer rows.Close()

	out := make([]models.ValidationCheckResult, 0, len(models.CheckOrder))
	for rows.Next() {
		var (
			c         models.ValidationCheckResult
			checkType string
			details   sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.SessionID, &checkType, &c.Passed, &c.Confidence, &c.Message, &details, &c.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		c.CheckType = models.CheckType(checkType)
		c.CheckedAt = c.CheckedAt.UTC()
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &c.Details); err != nil {
				return nil, fmt.Errorf("decode details of check %d: %w", c.ID, err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
