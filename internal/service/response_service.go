package service

import (
	"time"

	"meter_reading/internal/models"
	"meter_reading/internal/validation"
)

// LogFilter supports history filtering by time range, type and session.
type LogFilter struct {
	From      time.Time // inclusive; zero means no lower bound
	To        time.Time // inclusive; zero means no upper bound
	Type      string    // "", "SESSION_STARTED", "PIPELINE_RUN", ...
	SessionID int64     // 0 means any session
}

// RegisterDeviceParams describes a camera to provision.
type RegisterDeviceParams struct {
	SerialNumber    string
	OrganizationID  int64
	FirmwareVersion string
}

// StartParams opens an installation session for a device on a meter. The
// meter is created when no meter with that serial exists yet.
type StartParams struct {
	DeviceSerial    string
	FirmwareVersion string
	MeterSerial     string
	MeterType       string
	Unit            string
	Location        string
	ExpectedReading *float64
	OrganizationID  int64
	InstallerID     int
}

// CompleteParams closes a session. Calibration, when set, becomes the meter's
// expected reading and is embedded in its custom prompt.
type CompleteParams struct {
	Confirmed   bool
	Calibration *float64
	// Optional overrides used in the synthesized prompt.
	MeterSerial string
	MeterType   string
}

// ExtractParams is an ad-hoc reading request.
type ExtractParams struct {
	Image       []byte
	Hint        string
	Prompt      string
	MeterSerial string
}

// RunOutcome is the result of one validation run.
type RunOutcome struct {
	SessionID int64 `json:"session_id"`
	validation.Report
}

// SessionView is a session with its ordered audit trail.
type SessionView struct {
	models.InstallationSession
	PipelineRunning bool `json:"pipeline_running"`
}
