package bridge

import (
	"context"
	"strings"
	"testing"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"

	"github.com/winahq/walnut_agent/internal/collection"
	"github.com/winahq/walnut_agent/internal/config"
	"github.com/winahq/walnut_agent/internal/entry"
	"github.com/winahq/walnut_agent/internal/inject"
	"github.com/winahq/walnut_agent/internal/perf"
	"github.com/winahq/walnut_agent/internal/stream"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := &config.Config{PollIntervalMS: 10, PollCeilingMS: 100, EvalTimeoutMS: 1000}
	logs := collection.NewLogs(collection.Caps{})
	c := NewClient(cfg, logs, nil, nil, nil)
	t.Cleanup(func() { c.netCapture.Close() })
	return c
}

func TestHandleBindingConsole(t *testing.T) {
	c := newTestClient(t)

	c.handleBinding(&runtime.EventBindingCalled{
		Name:    inject.BindingConsole,
		Payload: `{"level":"error","message":"render failed"}`,
	})

	got := c.logs.Console.Snapshot()
	if len(got) != 1 {
		t.Fatalf("console entries = %d, want 1", len(got))
	}
	if got[0].Level != "error" || got[0].Message != "render failed" {
		t.Fatalf("entry = %+v", got[0])
	}
}

func TestHandleBindingMalformedPayloadDropped(t *testing.T) {
	c := newTestClient(t)

	c.handleBinding(&runtime.EventBindingCalled{
		Name:    inject.BindingConsole,
		Payload: `{"level":"error"}`,
	})

	if c.logs.Console.Len() != 0 {
		t.Fatal("payload without message must be dropped")
	}
}

func TestHandleBindingResourceCategorized(t *testing.T) {
	c := newTestClient(t)

	c.handleBinding(&runtime.EventBindingCalled{
		Name:    inject.BindingResources,
		Payload: `{"url":"https://cdn.example/logo.png","initiator_type":"img","start_time":12.5,"duration":30}`,
	})

	got := c.logs.Resources.Snapshot()
	if len(got) != 1 {
		t.Fatalf("resource entries = %d, want 1", len(got))
	}
	if got[0].Category != entry.CategoryImage {
		t.Fatalf("category = %q, want image", got[0].Category)
	}
}

func TestHandleBindingPerformance(t *testing.T) {
	c := newTestClient(t)

	c.handleBinding(&runtime.EventBindingCalled{
		Name: inject.BindingPerformance,
		Payload: `{
			"navigation": {"response": 120, "load_event": 900},
			"paints": [{"name": "first-contentful-paint", "start_time": 1200}],
			"resources": [],
			"cls": 0.02, "tbt": 40, "lcp": 1900
		}`,
	})

	got := c.LastPerformance()
	if got.State != perf.StateMeasured {
		t.Fatalf("state = %q, want measured", got.State)
	}
	if !got.FCP.Present || got.FCP.Rating != perf.RatingGood {
		t.Fatalf("fcp = %+v", got.FCP)
	}
	if !got.PassesWebVitals {
		t.Fatalf("aggregate = %+v, want passing vitals", got)
	}
}

func TestHandleBindingPerformanceEmptyPayloadIgnored(t *testing.T) {
	c := newTestClient(t)
	c.perfMu.Lock()
	c.lastPerf = perf.Data{State: perf.StateMeasured, Score: 90}
	c.perfMu.Unlock()

	c.handleBinding(&runtime.EventBindingCalled{
		Name:    inject.BindingPerformance,
		Payload: `{}`,
	})

	if got := c.LastPerformance(); got.State != perf.StateMeasured || got.Score != 90 {
		t.Fatalf("empty push must not clobber the last aggregate, got %+v", got)
	}
}

func TestWaitForPageReadyTimesOutWithoutTab(t *testing.T) {
	c := newTestClient(t)

	state, err := c.WaitForPageReady(context.Background())
	if err == nil {
		t.Fatal("expected a timeout without an attached tab")
	}
	if !strings.Contains(err.Error(), "page not ready") {
		t.Fatalf("err = %v", err)
	}
	if state != "unknown" {
		t.Fatalf("state = %q, want unknown", state)
	}
}

func TestNavigationClearsAndInvalidatesPerf(t *testing.T) {
	c := newTestClient(t)
	c.logs.Console.Append(entry.ConsoleEntry{ID: "c1", Level: "log", Message: "old"})
	c.perfMu.Lock()
	c.lastPerf = perf.Data{State: perf.StateMeasured, Score: 90}
	c.perfMu.Unlock()

	c.handleNavigation("tab1", "https://example.com/next", false)

	if c.logs.Console.Len() != 0 {
		t.Fatal("full navigation should clear the console collection")
	}
	if got := c.LastPerformance(); got.State != perf.StateNoData {
		t.Fatalf("perf state after navigation = %q, want no_data", got.State)
	}
}

func TestSPANavigationKeepsCollections(t *testing.T) {
	c := newTestClient(t)
	c.logs.Console.Append(entry.ConsoleEntry{ID: "c1", Level: "log", Message: "kept"})

	c.handleNavigation("tab1", "https://example.com/#view", true)

	if c.logs.Console.Len() != 1 {
		t.Fatal("SPA navigation must not clear collections")
	}
}

func TestNetworkCaptureLifecycle(t *testing.T) {
	logs := collection.NewLogs(collection.Caps{})
	var emitted []entry.NetworkEntry
	nc := NewNetworkCapture(logs, func(e entry.NetworkEntry) { emitted = append(emitted, e) })
	defer nc.Close()

	req := &network.EventRequestWillBeSent{
		RequestID: "req-1",
		Request:   &network.Request{URL: "https://api.example/users", Method: "GET"},
	}
	nc.OnRequestWillBeSent(req)
	nc.OnResponseReceived(&network.EventResponseReceived{
		RequestID: "req-1",
		Type:      network.ResourceTypeXHR,
		Response:  &network.Response{Status: 200, StatusText: "OK"},
	})
	nc.OnLoadingFinished(&network.EventLoadingFinished{RequestID: "req-1", EncodedDataLength: 512})

	got := logs.Network.Snapshot()
	if len(got) != 1 {
		t.Fatalf("network entries = %d, want 1", len(got))
	}
	e := got[0]
	if e.Status != 200 || e.EncodedBytes != 512 || e.Method != "GET" {
		t.Fatalf("entry = %+v", e)
	}
	if len(emitted) != 1 {
		t.Fatalf("emitted = %d, want 1", len(emitted))
	}
}

func TestNetworkCaptureFailure(t *testing.T) {
	logs := collection.NewLogs(collection.Caps{})
	nc := NewNetworkCapture(logs, nil)
	defer nc.Close()

	nc.OnRequestWillBeSent(&network.EventRequestWillBeSent{
		RequestID: "req-2",
		Request:   &network.Request{URL: "https://api.example/missing", Method: "GET"},
	})
	nc.OnLoadingFailed(&network.EventLoadingFailed{RequestID: "req-2", ErrorText: "net::ERR_FAILED"})

	got := logs.Network.Snapshot()
	if len(got) != 1 {
		t.Fatalf("network entries = %d, want 1", len(got))
	}
	if !got[0].Failed || got[0].FailReason != "net::ERR_FAILED" {
		t.Fatalf("entry = %+v", got[0])
	}
}

func TestNetworkCaptureUnknownRequestIgnored(t *testing.T) {
	logs := collection.NewLogs(collection.Caps{})
	nc := NewNetworkCapture(logs, nil)
	defer nc.Close()

	nc.OnLoadingFinished(&network.EventLoadingFinished{RequestID: "ghost"})

	if logs.Network.Len() != 0 {
		t.Fatal("finish without a pending request must be ignored")
	}
}

func TestPausedCollectionSkipsEmit(t *testing.T) {
	cfg := &config.Config{EvalTimeoutMS: 1000, PollIntervalMS: 10, PollCeilingMS: 100}
	logs := collection.NewLogs(collection.Caps{})
	hub := stream.NewHub()
	c := NewClient(cfg, logs, nil, hub, nil)
	defer c.netCapture.Close()

	_, ch := hub.Subscribe()
	logs.Console.SetCapturing(false)

	c.handleBinding(&runtime.EventBindingCalled{
		Name:    inject.BindingConsole,
		Payload: `{"level":"log","message":"ignored"}`,
	})

	if logs.Console.Len() != 0 {
		t.Fatal("paused collection must drop the entry")
	}
	if len(ch) != 0 {
		t.Fatal("dropped entry must not reach subscribers")
	}
}

func TestMatchesTabURL(t *testing.T) {
	c := newTestClient(t)

	if !c.matchesTabURL("https://anything.example") {
		t.Fatal("empty filter should match everything")
	}

	c.cfg.TabURLFilter = "Example.COM"
	if !c.matchesTabURL("https://sub.example.com/page") {
		t.Fatal("filter match should be case-insensitive")
	}
	if c.matchesTabURL("https://other.net") {
		t.Fatal("non-matching URL should be skipped")
	}
}
