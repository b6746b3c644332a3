package models

import "time"

// Installation event types.
const (
	EventSessionStarted   = "SESSION_STARTED"
	EventPipelineRun      = "PIPELINE_RUN"
	EventPipelineCanceled = "PIPELINE_CANCELED"
	EventSessionCompleted = "SESSION_COMPLETED"
	EventSessionFailed    = "SESSION_FAILED"
	EventDeviceRegistered = "DEVICE_REGISTERED"
	EventDeviceOffline    = "DEVICE_OFFLINE"
)

// InstallationEvent is a single audit log entry.
type InstallationEvent struct {
	EventID      string    `json:"event_id"`
	OccurredAt   time.Time `json:"occurred_at"`
	Type         string    `json:"type"`
	SessionID    *int64    `json:"session_id,omitempty"`
	DeviceSerial string    `json:"device_serial,omitempty"`
	Description  string    `json:"description"`
	Metadata     any       `json:"metadata,omitempty"`
}
