package capture

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveAndLatest(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if _, err := s.Save("AA:BB:CC", 1700000000100, "auto", []byte("old")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	p, err := s.Save("AA:BB:CC", 1700000000900, "manual", []byte("new"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Base(p) != "snapshot_AA-BB-CC_1700000000900_manual.jpeg" {
		t.Fatalf("unexpected file name %q", filepath.Base(p))
	}
	// another device must not leak in
	if _, err := s.Save("AA:BB:CCDD", 1800000000000, "auto", []byte("other")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	path, data, err := s.Latest("AA:BB:CC")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if path != p || string(data) != "new" {
		t.Fatalf("expected newest snapshot, got %s %q", path, data)
	}
}

func TestLatestMissing(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	if _, _, err := s.Latest("nope"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSaveRejectsEmpty(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	if _, err := s.Save("", 1, "auto", []byte("x")); err == nil {
		t.Fatal("expected error for empty serial")
	}
	if _, err := s.Save("cam", 1, "auto", nil); err == nil {
		t.Fatal("expected error for empty image")
	}
	entries, _ := os.ReadDir(s.Dir())
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestSanitizeSnapType(t *testing.T) {
	if got := sanitize("../evil type"); got != "eviltype" {
		t.Fatalf("unexpected sanitize result %q", got)
	}
	if got := sanitize(""); got != "snap" {
		t.Fatalf("expected default, got %q", got)
	}
}
