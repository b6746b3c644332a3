package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meter_reading/internal/service"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK = "ok"

	errInvalidBodyPref = "invalid body: "
	errInvalidID       = "invalid session id"
	errInternal        = "internal error"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		if httpCode >= http.StatusInternalServerError {
			h.log.Errorw(logKey, fields...)
		} else {
			h.log.Infow(logKey, fields...)
		}
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// serviceError maps domain errors to a status code and a client message.
// Unknown errors become a generic 500.
func serviceError(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrDeviceNotFound),
		errors.Is(err, service.ErrMeterNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrPipelineBusy):
		return http.StatusConflict, "validation pipeline already running for this session"
	case errors.Is(err, service.ErrSessionTerminal):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrRunCanceled):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, errInternal
	}
}

func (h *Handler) respondServiceError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	code, msg := serviceError(err)
	h.logAndJSONError(c, code, msg, logKey, err, kv...)
}

// sessionID parses the :id path parameter and writes a 400 when it is invalid.
func sessionID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidID})
		return 0, false
	}
	return id, true
}

// currentUserID returns the installer id stored by userIdMiddleware.
func currentUserID(c *gin.Context) int {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0
	}
	id, _ := v.(int)
	return id
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}
