package models

import "time"

// DeviceStatus is the lifecycle state of a camera device.
type DeviceStatus string

const (
	DeviceProvisioning   DeviceStatus = "provisioning"
	DeviceActive         DeviceStatus = "active"
	DeviceOffline        DeviceStatus = "offline"
	DeviceFailed         DeviceStatus = "failed"
	DeviceDecommissioned DeviceStatus = "decommissioned"
)

// Device is a physical camera that photographs a meter.
type Device struct {
	ID              int64        `json:"id"`
	SerialNumber    string       `json:"serial_number"`
	OrganizationID  int64        `json:"organization_id"`
	FirmwareVersion string       `json:"firmware_version,omitempty"`
	Status          DeviceStatus `json:"status"`
	MeterID         *int64       `json:"meter_id,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
}

// ConnectivityRecord holds the latest heartbeat of a device. One row per device.
type ConnectivityRecord struct {
	DeviceID  int64          `json:"device_id"`
	LastSeen  time.Time      `json:"last_seen"`
	IPAddress string         `json:"ip_address,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Meter is the installation target photographed by a device.
type Meter struct {
	ID              int64    `json:"id"`
	SerialNumber    string   `json:"serial_number"`
	MeterType       string   `json:"meter_type"` // gas | electricity | heat | water
	Unit            string   `json:"unit"`       // m3 | kWh
	Location        string   `json:"location,omitempty"`
	OrganizationID  int64    `json:"organization_id"`
	ExpectedReading *float64 `json:"expected_reading,omitempty"`
	CustomPrompt    string   `json:"custom_prompt,omitempty"`
}

// ConnectivityStatus is the answer to "did this device report recently".
// LastSeen and SecondsSince are nil when the device never reported.
type ConnectivityStatus struct {
	Connected    bool       `json:"connected"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	SecondsSince *float64   `json:"seconds_since_last_seen,omitempty"`
}
