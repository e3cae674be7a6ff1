package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/winahq/walnut_agent/internal/entry"
)

func TestMissingFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.Bool("preserve_log.console") {
		t.Fatal("absent key should read as false")
	}
	if s.Has("preserve_log.console") {
		t.Fatal("absent key should not be present")
	}
}

func TestSetAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.SetPreserveLog(entry.DomainConsole, true); err != nil {
		t.Fatalf("SetPreserveLog: %v", err)
	}
	if !s.PreserveLog(entry.DomainConsole) {
		t.Fatal("expected preserve_log.console true")
	}
	if s.PreserveLog(entry.DomainResource) {
		t.Fatal("untouched domain should stay false")
	}

	// A second store reads the same file back.
	again, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore reload: %v", err)
	}
	if !again.PreserveLog(entry.DomainConsole) {
		t.Fatal("expected persisted value after reload")
	}
}

func TestSingleKeyUpdateKeepsSiblings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.SetBool("preserve_log.console", true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if err := s.SetBool("preserve_log.network", true); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if err := s.SetBool("preserve_log.console", false); err != nil {
		t.Fatalf("SetBool: %v", err)
	}
	if s.Bool("preserve_log.console") {
		t.Fatal("console flag should be false after update")
	}
	if !s.Bool("preserve_log.network") {
		t.Fatal("network flag should survive sibling update")
	}
}

func TestCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.Bool("preserve_log.console") {
		t.Fatal("corrupt file should read as empty store")
	}
	if err := s.SetBool("preserve_log.console", true); err != nil {
		t.Fatalf("SetBool after corrupt load: %v", err)
	}
	if !s.Bool("preserve_log.console") {
		t.Fatal("expected write to succeed over reset store")
	}
}
