package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"meter_reading/internal/service"
)

// RegisterDeviceRequest is the payload for provisioning a camera.
type RegisterDeviceRequest struct {
	SerialNumber    string `json:"serial_number" binding:"required" example:"AA-BB-CC-DD-EE-FF"`
	OrganizationID  int64  `json:"organization_id" example:"1"`
	FirmwareVersion string `json:"firmware_version,omitempty" example:"1.4.2"`
}

// HeartbeatRequest is sent periodically by cameras.
type HeartbeatRequest struct {
	SerialNumber string         `json:"serial_number" binding:"required" example:"AA-BB-CC-DD-EE-FF"`
	IPAddress    string         `json:"ip_address,omitempty" example:"10.0.0.12"`
	StatusData   map[string]any `json:"status_data,omitempty"`
}

// @Summary      Register device
// @Description  Idempotent by serial number: a known serial returns the existing device with 200.
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body      RegisterDeviceRequest  true  "device"
// @Success      200   {object}  models.Device
// @Success      201   {object}  models.Device
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/devices [post]
// @Security     BearerAuth
func (h *Handler) registerDevice(c *gin.Context) {
	var req RegisterDeviceRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	d, created, err := h.services.Devices.Register(c.Request.Context(), service.RegisterDeviceParams{
		SerialNumber:    req.SerialNumber,
		OrganizationID:  req.OrganizationID,
		FirmwareVersion: req.FirmwareVersion,
	})
	if err != nil {
		h.respondServiceError(c, "device_register_failed", err, "serial", req.SerialNumber)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	c.JSON(code, d)
}

// @Summary      Device heartbeat
// @Description  Records that a camera is online. Requires X-Device-Key when a device key is configured.
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        X-Device-Key  header    string            false  "shared device key"
// @Param        body          body      HeartbeatRequest  true   "heartbeat"
// @Success      200           {object}  map[string]interface{}
// @Failure      401           {object}  map[string]string
// @Failure      404           {object}  map[string]string
// @Router       /devices/heartbeat [post]
func (h *Handler) heartbeat(c *gin.Context) {
	var req HeartbeatRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	now := time.Now().UTC()
	ip := req.IPAddress
	if ip == "" {
		ip = c.ClientIP()
	}
	if err := h.services.Connectivity.Record(c.Request.Context(), req.SerialNumber, now, ip, req.StatusData); err != nil {
		h.respondServiceError(c, "heartbeat_failed", err, "serial", req.SerialNumber)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "Heartbeat recorded",
		"timestamp":     now.Format(time.RFC3339),
		"camera_status": statusOK,
	})
}
