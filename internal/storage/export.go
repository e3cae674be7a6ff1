package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/winahq/walnut_agent/internal/collection"
	"github.com/winahq/walnut_agent/internal/entry"
)

// exportLine wraps an entry with its capture domain so a mixed JSONL stream
// stays self-describing.
type exportLine struct {
	Domain entry.Domain `json:"domain"`
	Entry  any          `json:"entry"`
}

// ExportLogs streams every captured entry to w as JSON lines, grouped by
// domain in console, resource, network, accessibility order.
func ExportLogs(w io.Writer, logs *collection.Logs) error {
	enc := json.NewEncoder(w)

	for _, e := range logs.Console.Snapshot() {
		if err := enc.Encode(exportLine{Domain: entry.DomainConsole, Entry: e}); err != nil {
			return fmt.Errorf("export console entry: %w", err)
		}
	}
	for _, e := range logs.Resources.Snapshot() {
		if err := enc.Encode(exportLine{Domain: entry.DomainResource, Entry: e}); err != nil {
			return fmt.Errorf("export resource entry: %w", err)
		}
	}
	for _, e := range logs.Network.Snapshot() {
		if err := enc.Encode(exportLine{Domain: entry.DomainNetwork, Entry: e}); err != nil {
			return fmt.Errorf("export network entry: %w", err)
		}
	}
	for _, e := range logs.Accessibility.Snapshot() {
		if err := enc.Encode(exportLine{Domain: entry.DomainAccessibility, Entry: e}); err != nil {
			return fmt.Errorf("export accessibility entry: %w", err)
		}
	}
	return nil
}
