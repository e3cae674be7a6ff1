package entry

import "time"

// Domain identifies which capture pipeline an entry belongs to.
type Domain string

const (
	DomainConsole       Domain = "console"
	DomainResource      Domain = "resource"
	DomainNetwork       Domain = "network"
	DomainPerformance   Domain = "performance"
	DomainAccessibility Domain = "accessibility"
)

// Category classifies a resource by its initiator.
type Category string

const (
	CategoryImage      Category = "image"
	CategoryScript     Category = "script"
	CategoryStylesheet Category = "stylesheet"
	CategoryFont       Category = "font"
	CategoryFetch      Category = "fetch"
	CategoryXHR        Category = "xhr"
	CategoryBeacon     Category = "beacon"
	CategoryMedia      Category = "media"
	CategoryDocument   Category = "document"
	CategoryOther      Category = "other"
)

// ConsoleEntry is a single captured console call from page context.
type ConsoleEntry struct {
	ID        string    `json:"id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	Line      int       `json:"line,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ResourceEntry is one Resource Timing record. Offsets and durations are
// milliseconds from navigation start. Size and sub-timing fields are zero
// when the browser withholds cross-origin timing.
type ResourceEntry struct {
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	Category    Category `json:"category"`
	StartOffset float64  `json:"start_offset"`
	Duration    float64  `json:"duration"`

	TransferSize int64 `json:"transfer_size"`
	EncodedSize  int64 `json:"encoded_size"`
	DecodedSize  int64 `json:"decoded_size"`

	DNSTime      float64 `json:"dns_time"`
	TCPTime      float64 `json:"tcp_time"`
	TLSTime      float64 `json:"tls_time"`
	RequestTime  float64 `json:"request_time"`
	ResponseTime float64 `json:"response_time"`

	Timestamp time.Time `json:"timestamp"`
}

// CrossOriginRestricted infers whether the browser zeroed detailed timing
// under the cross-origin timing policy: positive duration with all
// sub-timings and the transfer size reporting zero. A genuinely fast,
// fully-timed resource whose sub-measurements round to zero is
// indistinguishable from this; the inference is kept as-is rather than
// guessed around.
func (e ResourceEntry) CrossOriginRestricted() bool {
	return e.Duration > 0 &&
		e.TransferSize == 0 &&
		e.DNSTime == 0 &&
		e.TCPTime == 0 &&
		e.TLSTime == 0 &&
		e.RequestTime == 0 &&
		e.ResponseTime == 0
}

// NavigationTiming is the single per-load navigation record. All offsets are
// milliseconds from navigation start and are non-decreasing in well-formed
// data.
type NavigationTiming struct {
	Redirect         float64 `json:"redirect"`
	DNS              float64 `json:"dns"`
	TCP              float64 `json:"tcp"`
	TLS              float64 `json:"tls"`
	Request          float64 `json:"request"`
	Response         float64 `json:"response"`
	DOMProcessing    float64 `json:"dom_processing"`
	DOMContentLoaded float64 `json:"dom_content_loaded"`
	LoadEvent        float64 `json:"load_event"`
}

// IsZero reports whether no navigation timing was observed at all.
func (n NavigationTiming) IsZero() bool {
	return n == NavigationTiming{}
}

// PaintEntry is a named paint timestamp (first-paint,
// first-contentful-paint).
type PaintEntry struct {
	Name        string  `json:"name"`
	StartOffset float64 `json:"start_offset"`
}

// AccessibilityEntry is one reported accessibility violation.
type AccessibilityEntry struct {
	ID        string    `json:"id"`
	Rule      string    `json:"rule"`
	Impact    string    `json:"impact"`
	Selector  string    `json:"selector,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkEntry is a host-observed request/response pair from CDP network
// events, as opposed to the page-reported ResourceEntry.
type NetworkEntry struct {
	ID           string            `json:"id"`
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Status       int               `json:"status"`
	StatusText   string            `json:"status_text,omitempty"`
	ResourceType string            `json:"resource_type,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	EncodedBytes int64             `json:"encoded_bytes"`
	Failed       bool              `json:"failed,omitempty"`
	FailReason   string            `json:"fail_reason,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}
