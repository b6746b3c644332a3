package extractor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"meter_reading/internal/models"
)

const (
	SourceTesseract          = "tesseract"
	SourceTesseractSegmented = "tesseract_segmented"

	// textModeConfidence is reported for whole-image reads, which carry no score.
	textModeConfidence = 0.7
	maxSegmentValue    = 1_000_000
)

// Recognizer runs an OCR engine over an encoded image. extraArgs are appended to
// the engine command line (e.g. "tsv").
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, extraArgs ...string) (string, error)
}

// TesseractCLI shells out to the tesseract binary, feeding the image on stdin.
type TesseractCLI struct {
	Binary   string
	Language string
}

func (t TesseractCLI) Recognize(ctx context.Context, image []byte, extraArgs ...string) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	args := []string{"stdin", "stdout", "--psm", "7"}
	if t.Language != "" {
		args = append(args, "-l", t.Language)
	}
	args = append(args, extraArgs...)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = bytes.NewReader(image)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s not installed: %w", bin, err)
		}
		return "", fmt.Errorf("%s: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Tesseract reads the whole image as a single text line.
type Tesseract struct {
	ocr Recognizer
}

func NewTesseract(ocr Recognizer) *Tesseract { return &Tesseract{ocr: ocr} }

func (t *Tesseract) ID() string { return SourceTesseract }
func (t *Tesseract) Kind() Kind { return KindLocal }

func (t *Tesseract) Extract(ctx context.Context, image []byte, hint, _ string) models.ExtractionResult {
	raw, err := t.ocr.Recognize(ctx, image)
	if err != nil {
		return failed(SourceTesseract, "", err)
	}
	raw = strings.TrimSpace(raw)
	if v, ok := matchCalibration(raw, hint); ok {
		return models.ExtractionResult{SourceID: SourceTesseract, Value: v, RawText: raw, Confidence: 1, Calibrated: true}
	}
	v, ok := filterNumber(raw)
	if !ok || v <= 0 {
		return failed(SourceTesseract, raw, errors.New("no numeric text recognized"))
	}
	return models.ExtractionResult{SourceID: SourceTesseract, Value: v, RawText: raw, Confidence: textModeConfidence}
}

// TesseractSegmented reads word segments and keeps the one that looks most like
// a meter reading.
type TesseractSegmented struct {
	ocr Recognizer
}

func NewTesseractSegmented(ocr Recognizer) *TesseractSegmented {
	return &TesseractSegmented{ocr: ocr}
}

func (t *TesseractSegmented) ID() string { return SourceTesseractSegmented }
func (t *TesseractSegmented) Kind() Kind { return KindLocal }

func (t *TesseractSegmented) Extract(ctx context.Context, image []byte, hint, _ string) models.ExtractionResult {
	out, err := t.ocr.Recognize(ctx, image, "tsv")
	if err != nil {
		return failed(SourceTesseractSegmented, "", err)
	}
	segments := parseTSV(out)
	texts := make([]string, 0, len(segments))
	for _, s := range segments {
		texts = append(texts, s.text)
	}
	raw := strings.Join(texts, " ")

	if v, ok := matchCalibration(raw, hint); ok {
		return models.ExtractionResult{SourceID: SourceTesseractSegmented, Value: v, RawText: raw, Confidence: 1, Calibrated: true}
	}

	best, ok := bestSegment(segments)
	if !ok {
		return failed(SourceTesseractSegmented, raw, errors.New("no segment qualified as a reading"))
	}
	return models.ExtractionResult{
		SourceID:   SourceTesseractSegmented,
		Value:      best.value,
		RawText:    best.text,
		Confidence: best.confidence,
	}
}

type segment struct {
	text       string
	confidence float64
	value      float64
}

// parseTSV keeps word-level rows (level 5) with non-empty text.
func parseTSV(out string) []segment {
	var segs []segment
	sc := bufio.NewScanner(strings.NewReader(out))
	header := true
	for sc.Scan() {
		if header {
			header = false
			continue
		}
		cols := strings.Split(sc.Text(), "\t")
		if len(cols) < 12 || cols[0] != "5" {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			conf = 0
		}
		segs = append(segs, segment{text: text, confidence: conf / 100})
	}
	return segs
}

// bestSegment scores each candidate as its digit count, plus 2 when it has a
// decimal point. Segments with more than one decimal point or values of a
// million or more are skipped. Ties keep the earliest segment.
func bestSegment(segs []segment) (segment, bool) {
	var (
		best      segment
		bestScore = -1
	)
	for _, s := range segs {
		cleaned := cleanSegment(s.text)
		if cleaned == "" || strings.Count(cleaned, ".") > 1 {
			continue
		}
		v, err := strconv.ParseFloat(cleaned, 64)
		if err != nil || v <= 0 || v >= maxSegmentValue {
			continue
		}
		dots := strings.Count(cleaned, ".")
		score := len(cleaned) - dots
		if dots == 1 {
			score += 2
		}
		if score > bestScore {
			best = segment{text: s.text, confidence: s.confidence, value: v}
			bestScore = score
		}
	}
	return best, bestScore >= 0
}

func cleanSegment(text string) string {
	var b strings.Builder
	for _, r := range normalize(text) {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
