// Package prefs is a small JSON file-backed preference store for the
// capture behavior flags. Absent keys read as false; a missing file is an
// empty store, not an error.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/winahq/walnut_agent/internal/entry"
)

// Store is a concurrency-safe key-value preference file.
type Store struct {
	path string

	mu   sync.RWMutex
	data []byte
}

// NewStore loads the preference file at path, creating the parent directory.
// A missing file yields an empty store.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("prefs: mkdir %s: %w", dir, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("prefs: read %s: %w", path, err)
		}
		data = []byte("{}")
	}
	if !gjson.ValidBytes(data) {
		// A corrupt file degrades to defaults rather than blocking startup.
		data = []byte("{}")
	}

	return &Store{path: path, data: data}, nil
}

// Bool reads a boolean preference. Absent keys are false.
func (s *Store) Bool(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gjson.GetBytes(s.data, key).Bool()
}

// Has reports whether a key is present at all.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return gjson.GetBytes(s.data, key).Exists()
}

// SetBool writes a boolean preference and persists the file.
func (s *Store) SetBool(key string, v bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := sjson.SetBytes(s.data, key, v)
	if err != nil {
		return fmt.Errorf("prefs: set %s: %w", key, err)
	}
	if err := os.WriteFile(s.path, updated, 0o644); err != nil {
		return fmt.Errorf("prefs: write %s: %w", s.path, err)
	}
	s.data = updated
	return nil
}

// Snapshot returns the raw preference document.
func (s *Store) Snapshot() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out
}

// PreserveLog reports the preserve-log preference for a capture domain.
func (s *Store) PreserveLog(d entry.Domain) bool {
	return s.Bool("preserve_log." + string(d))
}

// SetPreserveLog persists the preserve-log preference for a capture domain.
func (s *Store) SetPreserveLog(d entry.Domain, v bool) error {
	return s.SetBool("preserve_log."+string(d), v)
}
