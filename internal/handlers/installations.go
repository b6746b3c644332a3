package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meter_reading/internal/service"
)

// StartInstallationRequest opens an installation session.
type StartInstallationRequest struct {
	CameraSerial    string   `json:"camera_serial" binding:"required" example:"AA-BB-CC-DD-EE-FF"`
	FirmwareVersion string   `json:"firmware_version,omitempty"`
	MeterSerial     string   `json:"meter_serial" binding:"required" example:"GAS-000123"`
	MeterType       string   `json:"meter_type" example:"gas"`
	MeterUnit       string   `json:"meter_unit" example:"m3"`
	MeterLocation   string   `json:"meter_location,omitempty"`
	ExpectedReading *float64 `json:"expected_reading,omitempty"`
	OrganizationID  int64    `json:"organization_id" example:"1"`
}

// CompleteInstallationRequest closes a session on the installer's decision.
type CompleteInstallationRequest struct {
	InstallerConfirmed bool     `json:"installer_confirmed" example:"true"`
	ExpectedReading    *float64 `json:"expected_reading,omitempty" example:"1234.5"`
	SerialNumber       string   `json:"serial_number,omitempty"`
	MeterType          string   `json:"meter_type,omitempty"`
}

// @Summary      Start installation
// @Description  Creates the meter if its serial is unknown, registers the camera if needed and opens a session.
// @Tags         installations
// @Accept       json
// @Produce      json
// @Param        body  body      StartInstallationRequest  true  "installation"
// @Success      200   {object}  map[string]interface{}    "session_id, status, message"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/installations/start [post]
// @Security     BearerAuth
func (h *Handler) startInstallation(c *gin.Context) {
	var req StartInstallationRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	sess, err := h.services.Installations.Start(c.Request.Context(), service.StartParams{
		DeviceSerial:    req.CameraSerial,
		FirmwareVersion: req.FirmwareVersion,
		MeterSerial:     req.MeterSerial,
		MeterType:       req.MeterType,
		Unit:            req.MeterUnit,
		Location:        req.MeterLocation,
		ExpectedReading: req.ExpectedReading,
		OrganizationID:  req.OrganizationID,
		InstallerID:     currentUserID(c),
	})
	if err != nil {
		h.respondServiceError(c, "installation_start_failed", err, "camera", req.CameraSerial, "meter", req.MeterSerial)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"status":     sess.Status,
		"message":    "Installation session started successfully",
	})
}

// @Summary      Run validation pipeline
// @Description  Runs connection, FOV, glare and OCR checks in order. Checks that did not run are reported as waiting.
// @Tags         installations
// @Produce      json
// @Param        id   path      int  true  "session id"
// @Success      200  {object}  service.RunOutcome
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string  "busy, terminal or canceled"
// @Router       /api/v1/installations/{id}/validate [post]
// @Security     BearerAuth
func (h *Handler) runValidation(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	out, err := h.services.Installations.RunValidation(c.Request.Context(), id)
	if errors.Is(err, service.ErrRunCanceled) && out != nil {
		if h.log != nil {
			h.log.Infow("validation_canceled", "session_id", id)
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "partial": out})
		return
	}
	if err != nil {
		h.respondServiceError(c, "validation_failed", err, "session_id", id)
		return
	}
	c.JSON(http.StatusOK, out)
}

// @Summary      Cancel validation run
// @Tags         installations
// @Produce      json
// @Param        id   path      int  true  "session id"
// @Success      200  {object}  map[string]interface{}  "session_id, canceled"
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/installations/{id}/cancel [post]
// @Security     BearerAuth
func (h *Handler) cancelValidation(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	canceled, err := h.services.Installations.Cancel(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, "validation_cancel_failed", err, "session_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "canceled": canceled})
}

// @Summary      Installation status
// @Tags         installations
// @Produce      json
// @Param        id   path      int  true  "session id"
// @Success      200  {object}  service.SessionView
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/installations/{id}/status [get]
// @Security     BearerAuth
func (h *Handler) installationStatus(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	view, err := h.services.Installations.Status(c.Request.Context(), id)
	if err != nil {
		h.respondServiceError(c, "installation_status_failed", err, "session_id", id)
		return
	}
	c.JSON(http.StatusOK, view)
}

// @Summary      Complete installation
// @Description  Confirmed: session completed, camera activated and linked to the meter, optional calibration stored. Not confirmed: session failed.
// @Tags         installations
// @Accept       json
// @Produce      json
// @Param        id    path      int                          true  "session id"
// @Param        body  body      CompleteInstallationRequest  true  "decision"
// @Success      200   {object}  map[string]interface{}       "session_id, status, message"
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/installations/{id}/complete [post]
// @Security     BearerAuth
func (h *Handler) completeInstallation(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req CompleteInstallationRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	sess, err := h.services.Installations.Complete(c.Request.Context(), id, service.CompleteParams{
		Confirmed:   req.InstallerConfirmed,
		Calibration: req.ExpectedReading,
		MeterSerial: req.SerialNumber,
		MeterType:   req.MeterType,
	})
	if err != nil {
		h.respondServiceError(c, "installation_complete_failed", err, "session_id", id)
		return
	}
	msg := "Installation marked as failed"
	if req.InstallerConfirmed {
		msg = "Installation completed successfully"
		if req.ExpectedReading != nil {
			msg = "Installation completed and calibrated successfully"
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"status":     sess.Status,
		"message":    msg,
	})
}
