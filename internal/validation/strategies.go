package validation

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"meter_reading/internal/config"
	"meter_reading/internal/models"
)

// SimulatedFOV reports a fixed, well framed meter whenever an image exists.
type SimulatedFOV struct{}

func (SimulatedFOV) Type() models.CheckType { return models.CheckFOV }

func (SimulatedFOV) Run(_ context.Context, t Target) (models.ValidationCheckResult, error) {
	if len(t.Image) == 0 {
		return missingImage(models.CheckFOV), nil
	}
	return result(models.CheckFOV, true, 0.95, "Meter fully visible and centered in frame", map[string]any{
		"meter_detected": true,
		"centered":       true,
		"fully_visible":  true,
	}), nil
}

// SimulatedGlare reports good lighting whenever an image exists.
type SimulatedGlare struct{}

func (SimulatedGlare) Type() models.CheckType { return models.CheckGlare }

func (SimulatedGlare) Run(_ context.Context, t Target) (models.ValidationCheckResult, error) {
	if len(t.Image) == 0 {
		return missingImage(models.CheckGlare), nil
	}
	return result(models.CheckGlare, true, 0.92, "No glare detected, lighting conditions good", map[string]any{
		"has_glare":              false,
		"overexposed_pixels_pct": 0.02,
	}), nil
}

const (
	minFOVWidth  = 320
	minFOVHeight = 240
	// refPixels is the resolution at which FOV confidence saturates.
	refPixels = 640 * 480

	overexposedLuma     = 250
	maxOverexposedRatio = 0.05
	glareSampleStep     = 4
)

// HeuristicFOV requires a decodable image of at least minFOVWidth x minFOVHeight.
type HeuristicFOV struct{}

func (HeuristicFOV) Type() models.CheckType { return models.CheckFOV }

func (HeuristicFOV) Run(_ context.Context, t Target) (models.ValidationCheckResult, error) {
	if len(t.Image) == 0 {
		return missingImage(models.CheckFOV), nil
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(t.Image))
	if err != nil {
		return result(models.CheckFOV, false, 0, "Image could not be decoded", map[string]any{"error": err.Error()}), nil
	}
	details := map[string]any{"width": cfg.Width, "height": cfg.Height, "format": format}
	if cfg.Width < minFOVWidth || cfg.Height < minFOVHeight {
		return result(models.CheckFOV, false, 0.2,
			fmt.Sprintf("Image too small (%dx%d, need %dx%d)", cfg.Width, cfg.Height, minFOVWidth, minFOVHeight), details), nil
	}
	conf := min(1.0, float64(cfg.Width*cfg.Height)/refPixels)
	return result(models.CheckFOV, true, conf, "Image resolution sufficient for framing", details), nil
}

// HeuristicGlare fails when too many sampled pixels are blown out.
type HeuristicGlare struct{}

func (HeuristicGlare) Type() models.CheckType { return models.CheckGlare }

func (HeuristicGlare) Run(ctx context.Context, t Target) (models.ValidationCheckResult, error) {
	if len(t.Image) == 0 {
		return missingImage(models.CheckGlare), nil
	}
	img, _, err := image.Decode(bytes.NewReader(t.Image))
	if err != nil {
		return result(models.CheckGlare, false, 0, "Image could not be decoded", map[string]any{"error": err.Error()}), nil
	}
	ratio, err := overexposedRatio(ctx, img)
	if err != nil {
		return models.ValidationCheckResult{}, err
	}
	details := map[string]any{
		"overexposed_pixels_pct": ratio,
		"has_glare":              ratio >= maxOverexposedRatio,
	}
	if ratio >= maxOverexposedRatio {
		return result(models.CheckGlare, false, 1-ratio,
			fmt.Sprintf("Glare detected (%.1f%% overexposed pixels)", ratio*100), details), nil
	}
	return result(models.CheckGlare, true, 1-ratio, "No glare detected, lighting conditions good", details), nil
}

func overexposedRatio(ctx context.Context, img image.Image) (float64, error) {
	b := img.Bounds()
	var total, bright int
	for y := b.Min.Y; y < b.Max.Y; y += glareSampleStep {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for x := b.Min.X; x < b.Max.X; x += glareSampleStep {
			r, g, bl, _ := img.At(x, y).RGBA()
			// Rec. 601 luma on 8-bit channels.
			luma := (299*(r>>8) + 587*(g>>8) + 114*(bl>>8)) / 1000
			if luma >= overexposedLuma {
				bright++
			}
			total++
		}
	}
	if total == 0 {
		return 0, nil
	}
	return float64(bright) / float64(total), nil
}

// Strategies returns the FOV and glare checks for a configured strategy name.
func Strategies(name string) (fov, glare Check, err error) {
	switch name {
	case config.StrategySimulated, "":
		return SimulatedFOV{}, SimulatedGlare{}, nil
	case config.StrategyHeuristic:
		return HeuristicFOV{}, HeuristicGlare{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown validation strategy %q", name)
	}
}
