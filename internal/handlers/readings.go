package handlers

import (
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"meter_reading/internal/service"
)

// maxImageBytes bounds an uploaded meter photo.
const maxImageBytes = 10 << 20

// @Summary      Extract reading
// @Description  Runs every configured extractor on the image and reconciles the results. The hint overrides consensus when an extractor reads exactly that value.
// @Tags         readings
// @Accept       multipart/form-data
// @Produce      json
// @Param        image         formData  file    true   "meter photo"
// @Param        hint          formData  string  false  "calibration hint, e.g. 1234.5"
// @Param        prompt        formData  string  false  "custom prompt for remote models"
// @Param        meter_serial  formData  string  false  "meter whose prompt and expected reading fill missing values"
// @Success      200           {object}  models.ConsensusOutcome
// @Failure      400           {object}  map[string]string
// @Failure      404           {object}  map[string]string
// @Router       /api/v1/readings/extract [post]
// @Security     BearerAuth
func (h *Handler) extractReading(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	if fh.Size > maxImageBytes {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "image too large: " + humanize.IBytes(uint64(fh.Size)) + " > " + humanize.IBytes(maxImageBytes),
		})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, "cannot read image", "reading_open_failed", err)
		return
	}
	defer f.Close()
	img, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		h.logAndJSONError(c, http.StatusBadRequest, "cannot read image", "reading_read_failed", err)
		return
	}

	out, err := h.services.Readings.Extract(c.Request.Context(), service.ExtractParams{
		Image:       img,
		Hint:        c.PostForm("hint"),
		Prompt:      c.PostForm("prompt"),
		MeterSerial: c.PostForm("meter_serial"),
	})
	if err != nil {
		h.respondServiceError(c, "reading_extract_failed", err)
		return
	}
	c.JSON(http.StatusOK, out)
}
