package perf

import (
	"github.com/tidwall/gjson"

	"github.com/winahq/walnut_agent/internal/entry"
)

// DecodeSnapshot parses a raw collection payload from the page into a
// Snapshot ready for Compute.
func DecodeSnapshot(raw []byte) Snapshot {
	return Snapshot{
		Navigation: entry.DecodeNavigation(raw),
		Paints:     entry.DecodePaints(raw),
		Resources:  entry.DecodeResourceList(raw),
		CLS:        gjson.GetBytes(raw, "cls").Float(),
		TBT:        gjson.GetBytes(raw, "tbt").Float(),
		LCP:        gjson.GetBytes(raw, "lcp").Float(),
	}
}
