package storage

import (
	"log/slog"
	"sync"

	"github.com/winahq/walnut_agent/internal/entry"
)

// WriterRegistry manages one JSONLWriter per capture domain, so console,
// resource, network and accessibility entries land in separate files.
type WriterRegistry struct {
	baseDir    string
	maxSizeMB  int
	bufferSize int
	sessionID  string

	writers map[entry.Domain]*JSONLWriter
	mu      sync.RWMutex
}

// NewWriterRegistry creates a registry for the given capture session.
func NewWriterRegistry(baseDir string, bufferSize int, maxSizeMB int, sessionID string) *WriterRegistry {
	return &WriterRegistry{
		baseDir:    baseDir,
		maxSizeMB:  maxSizeMB,
		bufferSize: bufferSize,
		sessionID:  sessionID,
		writers:    make(map[entry.Domain]*JSONLWriter),
	}
}

// Writer returns (or creates) the JSONLWriter for a capture domain.
func (r *WriterRegistry) Writer(domain entry.Domain) *JSONLWriter {
	r.mu.RLock()
	if w, ok := r.writers[domain]; ok {
		r.mu.RUnlock()
		return w
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if w, ok := r.writers[domain]; ok {
		return w
	}

	w := NewJSONLWriterForSession(
		r.baseDir,
		string(domain),
		r.bufferSize,
		r.maxSizeMB,
		r.sessionID,
	)
	r.writers[domain] = w

	slog.Info("Created new JSONL writer",
		"domain", domain,
		"session_id", r.sessionID)

	return w
}

// Close closes all managed writers.
func (r *WriterRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for domain, w := range r.writers {
		if err := w.Close(); err != nil {
			slog.Error("Failed to close writer",
				"domain", domain,
				"error", err)
			lastErr = err
		}
	}

	r.writers = make(map[entry.Domain]*JSONLWriter)

	return lastErr
}
