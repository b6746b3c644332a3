package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"meter_reading/internal/logger"
	"meter_reading/internal/models"
)

// DefaultPrompt is sent when the meter has no custom prompt.
const DefaultPrompt = "Read the numeric value shown on this meter display. Return only the number."

// remoteConfidence is reported for a parsed answer from a remote model.
const remoteConfidence = 0.9

// ImageReader is a remote vision model. vision.Client satisfies it.
type ImageReader interface {
	Configured() bool
	ReadImage(ctx context.Context, prompt string, image []byte) (string, error)
}

var errNotConfigured = errors.New("api key not configured")

// Remote asks a remote vision model for the reading.
type Remote struct {
	id     string
	reader ImageReader
	log    *logger.Logger

	warnOnce sync.Once
}

func NewRemote(id string, reader ImageReader, log *logger.Logger) *Remote {
	return &Remote{id: id, reader: reader, log: log}
}

func (r *Remote) ID() string { return r.id }
func (r *Remote) Kind() Kind { return KindRemote }

func (r *Remote) Extract(ctx context.Context, image []byte, hint, prompt string) models.ExtractionResult {
	if r.reader == nil || !r.reader.Configured() {
		r.warnOnce.Do(func() {
			if r.log != nil {
				r.log.Warnw("remote_extractor_unconfigured", "source", r.id)
			}
		})
		return failed(r.id, "", errNotConfigured)
	}

	raw, err := r.reader.ReadImage(ctx, BuildPrompt(prompt, hint), image)
	if err != nil {
		return failed(r.id, "", err)
	}
	raw = strings.TrimSpace(raw)

	if v, ok := matchCalibration(raw, hint); ok {
		return models.ExtractionResult{SourceID: r.id, Value: v, RawText: raw, Confidence: 1, Calibrated: true}
	}
	v, ok := parseReading(raw)
	if !ok || v <= 0 {
		return failed(r.id, raw, fmt.Errorf("no number in answer %q", raw))
	}
	return models.ExtractionResult{SourceID: r.id, Value: v, RawText: raw, Confidence: remoteConfidence}
}

// BuildPrompt returns the custom prompt (or DefaultPrompt) with the hint sentence
// appended when a hint is present.
func BuildPrompt(custom, hint string) string {
	p := strings.TrimSpace(custom)
	if p == "" {
		p = DefaultPrompt
	}
	if h := strings.TrimSpace(hint); h != "" {
		p += " Hint: the expected reading is close to " + h + "."
	}
	return p
}
