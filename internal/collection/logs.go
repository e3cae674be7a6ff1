package collection

import (
	"math"
	"strings"

	"github.com/winahq/walnut_agent/internal/entry"
)

// Default retention caps per capture domain.
const (
	DefaultConsoleCap       = 500
	DefaultResourceCap      = 1000
	DefaultNetworkCap       = 1000
	DefaultAccessibilityCap = 200
)

// resourceDedupToleranceMS is the start-offset window within which a
// same-URL resource entry counts as a duplicate report.
const resourceDedupToleranceMS = 1.0

// ResourceDedup drops a resource entry whose URL matches an existing entry
// with a start offset within 1ms. The Resource Timing buffer re-reports
// older entries on each collection pass; this keeps one copy.
func ResourceDedup(existing, candidate entry.ResourceEntry) bool {
	return existing.URL == candidate.URL &&
		math.Abs(existing.StartOffset-candidate.StartOffset) < resourceDedupToleranceMS
}

// ConsoleDedup drops a console entry repeating the previous one's level and
// message. Pages that log in a tight loop would otherwise flood the buffer;
// a repeat separated by other output is kept.
func ConsoleDedup(prev, candidate entry.ConsoleEntry) bool {
	return prev.Level == candidate.Level && prev.Message == candidate.Message
}

// Logs groups the per-domain bounded collections owned by one capture
// session. Constructed once at startup and passed by reference; there is no
// package-level shared state.
type Logs struct {
	Console       *Log[entry.ConsoleEntry]
	Resources     *Log[entry.ResourceEntry]
	Network       *Log[entry.NetworkEntry]
	Accessibility *Log[entry.AccessibilityEntry]
}

// Caps configures per-domain retention. Zero fields use the defaults.
type Caps struct {
	Console       int
	Resources     int
	Network       int
	Accessibility int
}

func (c Caps) withDefaults() Caps {
	if c.Console <= 0 {
		c.Console = DefaultConsoleCap
	}
	if c.Resources <= 0 {
		c.Resources = DefaultResourceCap
	}
	if c.Network <= 0 {
		c.Network = DefaultNetworkCap
	}
	if c.Accessibility <= 0 {
		c.Accessibility = DefaultAccessibilityCap
	}
	return c
}

// NewLogs creates the full set of per-domain collections.
func NewLogs(caps Caps) *Logs {
	caps = caps.withDefaults()
	return &Logs{
		Console:       NewWithRecentDedup(caps.Console, ConsoleDedup),
		Resources:     New(caps.Resources, ResourceDedup),
		Network:       New[entry.NetworkEntry](caps.Network, nil),
		Accessibility: New[entry.AccessibilityEntry](caps.Accessibility, nil),
	}
}

// ClearAll unconditionally empties every domain.
func (l *Logs) ClearAll() {
	l.Console.Clear()
	l.Resources.Clear()
	l.Network.Clear()
	l.Accessibility.Clear()
}

// ClearForNavigation applies the preserve-log preference per domain at a
// navigation boundary.
func (l *Logs) ClearForNavigation(preserved func(entry.Domain) bool) {
	l.Console.ClearIfNotPreserved(preserved(entry.DomainConsole))
	l.Resources.ClearIfNotPreserved(preserved(entry.DomainResource))
	l.Network.ClearIfNotPreserved(preserved(entry.DomainNetwork))
	l.Accessibility.ClearIfNotPreserved(preserved(entry.DomainAccessibility))
}

// ConsoleFilter matches console entries by level and free text.
func ConsoleFilter(level, q string) func(entry.ConsoleEntry) bool {
	level = strings.ToLower(strings.TrimSpace(level))
	q = strings.ToLower(strings.TrimSpace(q))
	return func(e entry.ConsoleEntry) bool {
		if level != "" && e.Level != level {
			return false
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Message), q) &&
			!strings.Contains(strings.ToLower(e.Source), q) {
			return false
		}
		return true
	}
}

// ResourceFilter matches resource entries by category and free text over
// the URL.
func ResourceFilter(category, q string) func(entry.ResourceEntry) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	q = strings.ToLower(strings.TrimSpace(q))
	return func(e entry.ResourceEntry) bool {
		if category != "" && string(e.Category) != category {
			return false
		}
		if q != "" && !strings.Contains(strings.ToLower(e.URL), q) {
			return false
		}
		return true
	}
}

// NetworkFilter matches host-observed network entries by method and free
// text over the URL.
func NetworkFilter(method, q string) func(entry.NetworkEntry) bool {
	method = strings.ToUpper(strings.TrimSpace(method))
	q = strings.ToLower(strings.TrimSpace(q))
	return func(e entry.NetworkEntry) bool {
		if method != "" && e.Method != method {
			return false
		}
		if q != "" && !strings.Contains(strings.ToLower(e.URL), q) {
			return false
		}
		return true
	}
}

// AccessibilityFilter matches accessibility entries by impact level.
func AccessibilityFilter(impact string) func(entry.AccessibilityEntry) bool {
	impact = strings.ToLower(strings.TrimSpace(impact))
	return func(e entry.AccessibilityEntry) bool {
		return impact == "" || e.Impact == impact
	}
}

// CategorySummary aggregates resource entries by category: count and total
// decoded bytes per category.
type CategorySummary struct {
	Category entry.Category `json:"category"`
	Count    int            `json:"count"`
	Bytes    int64          `json:"bytes"`
}

// SummarizeResources groups a resource snapshot by category in a stable
// order.
func SummarizeResources(entries []entry.ResourceEntry) []CategorySummary {
	order := []entry.Category{
		entry.CategoryDocument, entry.CategoryScript, entry.CategoryStylesheet,
		entry.CategoryImage, entry.CategoryFont, entry.CategoryMedia,
		entry.CategoryFetch, entry.CategoryXHR, entry.CategoryBeacon,
		entry.CategoryOther,
	}
	byCat := make(map[entry.Category]*CategorySummary)
	for _, e := range entries {
		s, ok := byCat[e.Category]
		if !ok {
			s = &CategorySummary{Category: e.Category}
			byCat[e.Category] = s
		}
		s.Count++
		s.Bytes += e.DecodedSize
	}

	out := make([]CategorySummary, 0, len(byCat))
	for _, cat := range order {
		if s, ok := byCat[cat]; ok {
			out = append(out, *s)
		}
	}
	return out
}
