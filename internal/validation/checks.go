package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"meter_reading/internal/models"
)

// Target is everything a check may look at.
type Target struct {
	Session models.InstallationSession
	Device  models.Device
	Meter   models.Meter
	// Image is the latest snapshot of the device; nil when none was captured.
	Image     []byte
	ImagePath string
}

// Check is one gate. An error is returned only when the check could not run at
// all (cancellation, storage failure); a negative outcome is a result.
type Check interface {
	Type() models.CheckType
	Run(ctx context.Context, t Target) (models.ValidationCheckResult, error)
}

func result(t models.CheckType, passed bool, confidence float64, msg string, details map[string]any) models.ValidationCheckResult {
	return models.ValidationCheckResult{
		CheckType:  t,
		Passed:     passed,
		Confidence: confidence,
		Message:    msg,
		Details:    details,
		CheckedAt:  time.Now().UTC(),
	}
}

func missingImage(t models.CheckType) models.ValidationCheckResult {
	return result(t, false, 0, "Image file not found", map[string]any{"error": "file_not_found"})
}

// ConnectivityChecker reports whether a device sent a heartbeat recently.
type ConnectivityChecker interface {
	IsRecentlyConnected(ctx context.Context, deviceID int64, window time.Duration) (models.ConnectivityStatus, error)
}

// ConnectionCheck passes when the device reported within the freshness window.
type ConnectionCheck struct {
	Monitor ConnectivityChecker
	Window  time.Duration
}

func (c ConnectionCheck) Type() models.CheckType { return models.CheckConnection }

func (c ConnectionCheck) Run(ctx context.Context, t Target) (models.ValidationCheckResult, error) {
	st, err := c.Monitor.IsRecentlyConnected(ctx, t.Device.ID, c.Window)
	if err != nil {
		return models.ValidationCheckResult{}, err
	}
	details := map[string]any{
		"device_serial":  t.Device.SerialNumber,
		"window_seconds": c.Window.Seconds(),
	}
	if st.SecondsSince != nil {
		details["seconds_since_last_seen"] = *st.SecondsSince
	}
	if st.Connected {
		return result(models.CheckConnection, true, 1, "Camera connected successfully", details), nil
	}
	msg := "Camera not responding (never seen)"
	if st.LastSeen != nil {
		msg = fmt.Sprintf("Camera not responding (last seen %s)", humanize.Time(*st.LastSeen))
	}
	return result(models.CheckConnection, false, 0, msg, details), nil
}

// Resolver produces a consensus reading. consensus.Engine satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, image []byte, hint, prompt string) models.ConsensusOutcome
}

// OCRCheck passes when consensus yields a positive value with enough confidence.
// The meter's custom prompt is used and no calibration hint is given.
type OCRCheck struct {
	Resolver  Resolver
	Threshold float64
}

func (c OCRCheck) Type() models.CheckType { return models.CheckOCR }

func (c OCRCheck) Run(ctx context.Context, t Target) (models.ValidationCheckResult, error) {
	if len(t.Image) == 0 {
		return missingImage(models.CheckOCR), nil
	}
	out := c.Resolver.Resolve(ctx, t.Image, "", t.Meter.CustomPrompt)
	if err := ctx.Err(); err != nil {
		return models.ValidationCheckResult{}, err
	}
	details := map[string]any{
		"reading_value":        out.FinalValue,
		"rule_applied":         string(out.Rule),
		"contributing_sources": out.ContributingSources,
		"ocr_confidence":       out.Confidence,
		"threshold":            c.Threshold,
	}
	if t.Meter.Unit != "" {
		details["unit"] = t.Meter.Unit
	}
	switch {
	case !out.HasReading():
		return result(models.CheckOCR, false, 0, "No reading could be extracted", details), nil
	case out.Confidence < c.Threshold:
		return result(models.CheckOCR, false, out.Confidence,
			fmt.Sprintf("Reading %v below confidence threshold (%d%% < %d%%)",
				out.FinalValue, int(out.Confidence*100), int(c.Threshold*100)), details), nil
	default:
		return result(models.CheckOCR, true, out.Confidence,
			fmt.Sprintf("Initial reading: %v %s (confidence: %d%%)",
				out.FinalValue, t.Meter.Unit, int(out.Confidence*100)), details), nil
	}
}
