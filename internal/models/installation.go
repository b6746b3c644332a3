package models

import "time"

// SessionStatus is the lifecycle state of an installation session.
type SessionStatus string

const (
	StatusStarted          SessionStatus = "started"
	StatusConnectionPassed SessionStatus = "connection_passed"
	StatusFovValidated     SessionStatus = "fov_validated"
	StatusGlareChecked     SessionStatus = "glare_checked"
	StatusOcrValidated     SessionStatus = "ocr_validated"
	StatusCompleted        SessionStatus = "completed"
	StatusFailed           SessionStatus = "failed"
)

// statusRank orders the forward path; failed sits outside it.
var statusRank = map[SessionStatus]int{
	StatusStarted:          1,
	StatusConnectionPassed: 2,
	StatusFovValidated:     3,
	StatusGlareChecked:     4,
	StatusOcrValidated:     5,
	StatusCompleted:        6,
}

// Rank returns the position of s on the forward path (0 for failed/unknown).
func (s SessionStatus) Rank() int { return statusRank[s] }

// IsTerminal reports whether no further automatic transition may leave s.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	return s == StatusFailed || statusRank[s] > 0
}

// CheckType names one validation gate.
type CheckType string

const (
	CheckConnection CheckType = "connection"
	CheckFOV        CheckType = "fov"
	CheckGlare      CheckType = "glare"
	CheckOCR        CheckType = "ocr"
)

// CheckOrder is the fixed execution order of the validation pipeline.
var CheckOrder = []CheckType{CheckConnection, CheckFOV, CheckGlare, CheckOCR}

// ValidationCheckResult is one immutable audit record of an executed check.
type ValidationCheckResult struct {
	ID         int64          `json:"id,omitempty"`
	SessionID  int64          `json:"session_id"`
	CheckType  CheckType      `json:"check_type"`
	Passed     bool           `json:"passed"`
	Confidence float64        `json:"confidence"` // 0..1
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	CheckedAt  time.Time      `json:"checked_at"`
}

// InstallationSession tracks one device installation attempt.
type InstallationSession struct {
	ID             int64                   `json:"id"`
	Status         SessionStatus           `json:"status"`
	DeviceID       int64                   `json:"device_id"`
	MeterID        int64                   `json:"meter_id"`
	InstallerID    int                     `json:"installer_id"`
	OrganizationID int64                   `json:"organization_id"`
	StartedAt      time.Time               `json:"started_at"`
	CompletedAt    *time.Time              `json:"completed_at,omitempty"`
	CheckResults   []ValidationCheckResult `json:"check_results,omitempty"`
}
