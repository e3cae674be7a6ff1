package entry

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// ErrMissingField marks a payload that lacks a required key. Callers drop
// the single entry and keep the channel alive.
var ErrMissingField = errors.New("payload missing required field")

var fontExtensions = map[string]bool{
	"woff": true, "woff2": true, "ttf": true, "otf": true, "eot": true,
}

var mediaExtensions = map[string]bool{
	"mp4": true, "webm": true, "ogv": true, "mov": true, "m4v": true,
	"mp3": true, "wav": true, "ogg": true, "m4a": true, "aac": true, "flac": true,
}

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "webp": true,
	"svg": true, "ico": true, "avif": true, "bmp": true,
}

// genericInitiators are reported types too vague to trust on their own;
// the URL extension gets a chance to refine them.
var genericInitiators = map[string]Category{
	"css":   CategoryStylesheet,
	"link":  CategoryStylesheet,
	"fetch": CategoryFetch,
	"xhr":   CategoryXHR,
	"other": CategoryOther,
	"":      CategoryOther,
}

var directInitiators = map[string]Category{
	"img":            CategoryImage,
	"image":          CategoryImage,
	"script":         CategoryScript,
	"xmlhttprequest": CategoryXHR,
	"beacon":         CategoryBeacon,
	"video":          CategoryMedia,
	"audio":          CategoryMedia,
	"track":          CategoryMedia,
	"font":           CategoryFont,
	"navigation":     CategoryDocument,
	"iframe":         CategoryDocument,
	"frame":          CategoryDocument,
}

// ResolveCategory maps a page-reported initiator type to a Category.
// Precedence: direct match, extension refinement for generic initiators
// (fonts and media reassign), extension-based image detection, other.
func ResolveCategory(initiatorType, rawURL string) Category {
	reported := strings.ToLower(strings.TrimSpace(initiatorType))

	if cat, ok := directInitiators[reported]; ok {
		return cat
	}

	base, generic := genericInitiators[reported]
	if !generic {
		base = CategoryOther
	}

	ext := urlExtension(rawURL)
	if ext != "" {
		switch {
		case fontExtensions[ext]:
			return CategoryFont
		case mediaExtensions[ext]:
			return CategoryMedia
		case imageExtensions[ext]:
			return CategoryImage
		}
	}

	return base
}

func urlExtension(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	dot := strings.LastIndexByte(path, '.')
	if dot < 0 || dot == len(path)-1 {
		return ""
	}
	ext := strings.ToLower(path[dot+1:])
	if strings.ContainsAny(ext, "/\\") {
		return ""
	}
	return ext
}

// DecodeConsole turns a raw bridge payload into a ConsoleEntry. The message
// key is required; everything else defaults.
func DecodeConsole(raw []byte) (ConsoleEntry, error) {
	msg := gjson.GetBytes(raw, "message")
	if !msg.Exists() {
		return ConsoleEntry{}, ErrMissingField
	}

	level := strings.ToLower(gjson.GetBytes(raw, "level").String())
	switch level {
	case "log", "info", "warn", "error", "debug":
	default:
		level = "log"
	}

	return ConsoleEntry{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   msg.String(),
		Source:    gjson.GetBytes(raw, "source").String(),
		Line:      int(gjson.GetBytes(raw, "line").Int()),
		Timestamp: time.Now().UTC(),
	}, nil
}

// DecodeResource turns a raw bridge payload into a ResourceEntry. The url
// key is required; absent numerics decode to 0 and the category falls back
// through ResolveCategory.
func DecodeResource(raw []byte) (ResourceEntry, error) {
	u := gjson.GetBytes(raw, "url")
	if !u.Exists() || u.String() == "" {
		return ResourceEntry{}, ErrMissingField
	}

	return ResourceEntry{
		ID:           uuid.New().String(),
		URL:          u.String(),
		Category:     ResolveCategory(gjson.GetBytes(raw, "initiator_type").String(), u.String()),
		StartOffset:  gjson.GetBytes(raw, "start_time").Float(),
		Duration:     gjson.GetBytes(raw, "duration").Float(),
		TransferSize: gjson.GetBytes(raw, "transfer_size").Int(),
		EncodedSize:  gjson.GetBytes(raw, "encoded_size").Int(),
		DecodedSize:  gjson.GetBytes(raw, "decoded_size").Int(),
		DNSTime:      gjson.GetBytes(raw, "dns").Float(),
		TCPTime:      gjson.GetBytes(raw, "tcp").Float(),
		TLSTime:      gjson.GetBytes(raw, "tls").Float(),
		RequestTime:  gjson.GetBytes(raw, "request").Float(),
		ResponseTime: gjson.GetBytes(raw, "response").Float(),
		Timestamp:    time.Now().UTC(),
	}, nil
}

// DecodeNavigation parses the navigation block of a performance payload.
// A missing block yields a zero NavigationTiming, which callers treat as
// "no data" rather than a measured zero.
func DecodeNavigation(raw []byte) NavigationTiming {
	nav := gjson.GetBytes(raw, "navigation")
	if !nav.Exists() {
		return NavigationTiming{}
	}
	return NavigationTiming{
		Redirect:         nav.Get("redirect").Float(),
		DNS:              nav.Get("dns").Float(),
		TCP:              nav.Get("tcp").Float(),
		TLS:              nav.Get("tls").Float(),
		Request:          nav.Get("request").Float(),
		Response:         nav.Get("response").Float(),
		DOMProcessing:    nav.Get("dom_processing").Float(),
		DOMContentLoaded: nav.Get("dom_content_loaded").Float(),
		LoadEvent:        nav.Get("load_event").Float(),
	}
}

// DecodePaints parses the paint entry list of a performance payload.
func DecodePaints(raw []byte) []PaintEntry {
	var paints []PaintEntry
	gjson.GetBytes(raw, "paints").ForEach(func(_, v gjson.Result) bool {
		name := v.Get("name").String()
		if name == "" {
			return true
		}
		paints = append(paints, PaintEntry{
			Name:        name,
			StartOffset: v.Get("start_time").Float(),
		})
		return true
	})
	return paints
}

// DecodeResourceList parses the resources array of a performance payload,
// skipping malformed elements.
func DecodeResourceList(raw []byte) []ResourceEntry {
	var resources []ResourceEntry
	gjson.GetBytes(raw, "resources").ForEach(func(_, v gjson.Result) bool {
		r, err := DecodeResource([]byte(v.Raw))
		if err != nil {
			return true
		}
		resources = append(resources, r)
		return true
	})
	return resources
}

// DecodeAccessibility turns a raw bridge payload into an AccessibilityEntry.
// The rule key is required; unknown impact levels map to "unknown".
func DecodeAccessibility(raw []byte) (AccessibilityEntry, error) {
	rule := gjson.GetBytes(raw, "rule")
	if !rule.Exists() || rule.String() == "" {
		return AccessibilityEntry{}, ErrMissingField
	}

	impact := strings.ToLower(gjson.GetBytes(raw, "impact").String())
	switch impact {
	case "minor", "moderate", "serious", "critical":
	default:
		impact = "unknown"
	}

	return AccessibilityEntry{
		ID:        uuid.New().String(),
		Rule:      rule.String(),
		Impact:    impact,
		Selector:  gjson.GetBytes(raw, "selector").String(),
		Summary:   gjson.GetBytes(raw, "summary").String(),
		Timestamp: time.Now().UTC(),
	}, nil
}
