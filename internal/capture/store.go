// Package capture keeps camera snapshots on disk. The newest snapshot of a
// device is the image the installation pipeline validates.
package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrNoSnapshot is returned when a device has no stored snapshot.
var ErrNoSnapshot = errors.New("no snapshot for device")

const (
	filePrefix = "snapshot_"
	fileExt    = ".jpeg"
)

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// NormalizeSerial maps a MAC-style device id to its on-disk form (':' -> '-').
func NormalizeSerial(serial string) string {
	return strings.ReplaceAll(strings.TrimSpace(serial), ":", "-")
}

// Save writes snapshot_<serial>_<ts>_<type>.jpeg atomically and returns its path.
func (s *Store) Save(serial string, ts int64, snapType string, data []byte) (string, error) {
	serial = NormalizeSerial(serial)
	if serial == "" {
		return "", errors.New("capture: empty device serial")
	}
	if len(data) == 0 {
		return "", errors.New("capture: empty image")
	}
	name := fmt.Sprintf("%s%s_%d_%s%s", filePrefix, serial, ts, sanitize(snapType), fileExt)
	path := filepath.Join(s.dir, name)

	tmp := filepath.Join(s.dir, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("capture: write %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("capture: rename %s: %w", name, err)
	}
	return path, nil
}

// Latest returns the path and bytes of the snapshot with the highest timestamp.
func (s *Store) Latest(serial string) (string, []byte, error) {
	serial = NormalizeSerial(serial)
	prefix := filePrefix + serial + "_"
	matches, err := filepath.Glob(filepath.Join(s.dir, globEscape(prefix)+"*"+fileExt))
	if err != nil {
		return "", nil, fmt.Errorf("capture: list snapshots: %w", err)
	}

	var (
		best   string
		bestTS int64 = -1
	)
	for _, m := range matches {
		rest := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(m), prefix), fileExt)
		tsPart, _, ok := strings.Cut(rest, "_")
		if !ok {
			continue
		}
		ts, err := strconv.ParseInt(tsPart, 10, 64)
		if err != nil {
			continue
		}
		if ts > bestTS {
			best, bestTS = m, ts
		}
	}
	if best == "" {
		return "", nil, ErrNoSnapshot
	}
	data, err := os.ReadFile(best)
	if err != nil {
		return "", nil, fmt.Errorf("capture: read %s: %w", best, err)
	}
	return best, data, nil
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "snap"
	}
	return b.String()
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}
