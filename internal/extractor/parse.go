package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// normalize folds compatibility forms (full-width digits, ligatures), drops all
// whitespace and uses '.' as the decimal separator.
func normalize(s string) string {
	s = norm.NFKC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			continue
		case r == ',':
			b.WriteRune('.')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseHint parses a calibration hint. ',' is accepted as decimal separator.
// ok is false for empty or unparseable hints, which callers ignore.
func ParseHint(hint string) (float64, bool) {
	h := normalize(hint)
	if h == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(h, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// matchCalibration returns the hint value when the normalized hint occurs in the
// normalized raw text.
func matchCalibration(raw, hint string) (float64, bool) {
	h := normalize(hint)
	if h == "" || raw == "" {
		return 0, false
	}
	v, ok := ParseHint(hint)
	if !ok {
		return 0, false
	}
	if !strings.Contains(normalize(raw), h) {
		return 0, false
	}
	return v, true
}

// filterNumber keeps digits and decimal separators and parses the remainder.
func filterNumber(raw string) (float64, bool) {
	var b strings.Builder
	for _, r := range norm.NFKC.String(raw) {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == ',':
			b.WriteRune('.')
		}
	}
	s := b.String()
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseReading applies filterNumber and falls back to the first number found by
// pattern, which rescues answers such as "Reading: 123.4 m3 (approx. 2024)".
func parseReading(raw string) (float64, bool) {
	if v, ok := filterNumber(raw); ok {
		return v, true
	}
	m := numberPattern.FindString(norm.NFKC.String(raw))
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
