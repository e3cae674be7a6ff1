package controller

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/winahq/walnut_agent/internal/archive"
	"github.com/winahq/walnut_agent/internal/bridge"
	"github.com/winahq/walnut_agent/internal/collection"
	"github.com/winahq/walnut_agent/internal/config"
	"github.com/winahq/walnut_agent/internal/entry"
	"github.com/winahq/walnut_agent/internal/prefs"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{EvalTimeoutMS: 1000, PollIntervalMS: 10, PollCeilingMS: 100}
	logs := collection.NewLogs(collection.Caps{})

	prefStore, err := prefs.NewStore(filepath.Join(dir, "prefs.json"))
	if err != nil {
		t.Fatalf("prefs.NewStore: %v", err)
	}
	arch, err := archive.Open(filepath.Join(dir, "archive.db"))
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	t.Cleanup(func() { arch.Close() })

	cdp := bridge.NewClient(cfg, logs, prefStore, nil, nil)
	t.Cleanup(func() { cdp.Close() })

	return NewService(cdp, logs, prefStore, arch)
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var coded *bridge.CodedError
	if !errors.As(err, &coded) {
		t.Fatalf("expected coded error, got %v", err)
	}
	return coded.Code
}

func TestQueryConsoleRejectsUnknownLevel(t *testing.T) {
	s := newTestService(t)

	_, err := s.QueryConsole(context.Background(), "fatal", "", 0)
	if codeOf(t, err) != bridge.CodeValidation {
		t.Fatalf("code = %v", err)
	}
}

func TestLimitTail(t *testing.T) {
	s := newTestService(t)
	for _, msg := range []string{"one", "two", "three"} {
		s.logs.Console.Append(entry.ConsoleEntry{ID: msg, Level: "log", Message: msg})
	}

	got, err := s.QueryConsole(context.Background(), "", "", 2)
	if err != nil {
		t.Fatalf("QueryConsole: %v", err)
	}
	if len(got) != 2 || got[0].Message != "two" || got[1].Message != "three" {
		t.Fatalf("got %+v, want the two most recent", got)
	}

	all, err := s.QueryConsole(context.Background(), "", "", 0)
	if err != nil {
		t.Fatalf("QueryConsole: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("zero limit should return everything, got %d", len(all))
	}
}

func TestSetCapturingUnknownDomain(t *testing.T) {
	s := newTestService(t)

	_, err := s.SetCapturing(entry.Domain("bogus"), false)
	if codeOf(t, err) != bridge.CodeValidation {
		t.Fatalf("code = %v", err)
	}
}

func TestCaptureStatusCoversAllDomains(t *testing.T) {
	s := newTestService(t)
	s.logs.Resources.Append(entry.ResourceEntry{ID: "r1", URL: "https://x/a.js", Category: entry.CategoryScript})

	statuses := s.CaptureStatus()
	if len(statuses) != 4 {
		t.Fatalf("statuses = %d, want 4", len(statuses))
	}
	if statuses[0].Domain != entry.DomainConsole || !statuses[0].Capturing {
		t.Fatalf("first status = %+v", statuses[0])
	}
	if statuses[1].Domain != entry.DomainResource || statuses[1].Length != 1 {
		t.Fatalf("resource status = %+v", statuses[1])
	}
}

func TestSessionNotFound(t *testing.T) {
	s := newTestService(t)

	err := s.DeleteSession(context.Background(), "does-not-exist")
	if codeOf(t, err) != bridge.CodeSessionNotFound {
		t.Fatalf("code = %v", err)
	}
}

func TestInjectBlankScriptReinstallsInstrumentation(t *testing.T) {
	s := newTestService(t)

	// Without an attached tab the re-install reaches the bridge and fails
	// there, not in validation.
	_, err := s.InjectScript(context.Background(), "   ")
	if codeOf(t, err) != bridge.CodeNoTab {
		t.Fatalf("code = %v, want no-tab", err)
	}
}

func TestCollectPerformanceReloadWithoutTab(t *testing.T) {
	s := newTestService(t)

	_, err := s.CollectPerformance(context.Background(), true)
	if codeOf(t, err) != bridge.CodeNoTab {
		t.Fatalf("code = %v, want no-tab", err)
	}
}

func TestSetPreferencePreserveLog(t *testing.T) {
	s := newTestService(t)

	if err := s.SetPreference("preserve_log.network", true); err != nil {
		t.Fatalf("SetPreference: %v", err)
	}
	if !s.prefs.PreserveLog(entry.DomainNetwork) {
		t.Fatal("preserve-log preference should be set for the network domain")
	}
	if s.prefs.PreserveLog(entry.DomainConsole) {
		t.Fatal("other domains must be unaffected")
	}
}

func TestWrapEvalErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"timeout", context.DeadlineExceeded, bridge.CodeEvalTimeout},
		{"not ready", errors.New("page not ready after 10s (state loading)"), bridge.CodeEvalTimeout},
		{"no tab", errors.New("no attached tabs"), bridge.CodeNoTab},
		{"script failure", errors.New("page script error: boom"), bridge.CodeEvalFailure},
		{"transport", errors.New("websocket closed"), bridge.CodeCDPUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := codeOf(t, wrapEvalErr(tc.err)); got != tc.code {
				t.Fatalf("code = %s, want %s", got, tc.code)
			}
		})
	}
}
