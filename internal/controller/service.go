// Package controller wires the capture collections, the CDP bridge, and the
// archive behind the operations the HTTP API exposes.
package controller

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/winahq/walnut_agent/internal/archive"
	"github.com/winahq/walnut_agent/internal/bridge"
	"github.com/winahq/walnut_agent/internal/collection"
	"github.com/winahq/walnut_agent/internal/entry"
	"github.com/winahq/walnut_agent/internal/notify"
	"github.com/winahq/walnut_agent/internal/perf"
	"github.com/winahq/walnut_agent/internal/prefs"
	"github.com/winahq/walnut_agent/internal/storage"
)

// Service wraps capture, query, and archive operations.
type Service struct {
	cdp   *bridge.Client
	logs  *collection.Logs
	prefs *prefs.Store
	arch  *archive.Store

	notifyEndpoint string
}

func NewService(cdp *bridge.Client, logs *collection.Logs, prefStore *prefs.Store, arch *archive.Store) *Service {
	return &Service{cdp: cdp, logs: logs, prefs: prefStore, arch: arch}
}

// SetNotifyEndpoint enables a webhook ping whenever a session is archived.
func (s *Service) SetNotifyEndpoint(endpoint string) {
	s.notifyEndpoint = endpoint
}

// HealthInfo reports agent liveness and attachment state.
type HealthInfo struct {
	Status   string `json:"status"`
	TabCount int    `json:"tab_count"`
	PageURL  string `json:"page_url,omitempty"`
}

// DomainStatus reports one collection's counters and capture flag.
type DomainStatus struct {
	Domain    entry.Domain `json:"domain"`
	Capturing bool         `json:"capturing"`
	Length    int          `json:"length"`
	Capacity  int          `json:"capacity"`
	Dropped   uint64       `json:"dropped"`
	Evicted   uint64       `json:"evicted"`
}

// ReloadResult reports the page state after a reload.
type ReloadResult struct {
	Status     string `json:"status"`
	ReadyState string `json:"ready_state,omitempty"`
}

func (s *Service) Health(ctx context.Context) HealthInfo {
	return HealthInfo{
		Status:   "ok",
		TabCount: s.cdp.TabCount(),
		PageURL:  s.cdp.PrimaryTabURL(),
	}
}

// --- Query views ---

// limitTail keeps the most recent n elements of a snapshot.
func limitTail[T any](entries []T, limit int) []T {
	if limit <= 0 || limit >= len(entries) {
		return entries
	}
	return entries[len(entries)-limit:]
}

func (s *Service) QueryConsole(ctx context.Context, level, q string, limit int) ([]entry.ConsoleEntry, error) {
	if err := validateLevel(level); err != nil {
		return nil, err
	}
	return limitTail(s.logs.Console.Filter(collection.ConsoleFilter(level, q)), limit), nil
}

func (s *Service) QueryResources(ctx context.Context, category, q string, limit int) ([]entry.ResourceEntry, error) {
	return limitTail(s.logs.Resources.Filter(collection.ResourceFilter(category, q)), limit), nil
}

func (s *Service) ResourceSummary(ctx context.Context) []collection.CategorySummary {
	return collection.SummarizeResources(s.logs.Resources.Snapshot())
}

func (s *Service) QueryNetwork(ctx context.Context, method, q string, limit int) ([]entry.NetworkEntry, error) {
	return limitTail(s.logs.Network.Filter(collection.NetworkFilter(method, q)), limit), nil
}

func (s *Service) QueryAccessibility(ctx context.Context, impact string, limit int) ([]entry.AccessibilityEntry, error) {
	return limitTail(s.logs.Accessibility.Filter(collection.AccessibilityFilter(impact)), limit), nil
}

func validateLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "log", "info", "warn", "error", "debug":
		return nil
	}
	return bridge.NewError(bridge.CodeValidation, "unknown console level "+level, nil)
}

// --- Capture control ---

// domainLog is the capture-control surface shared by every typed collection.
type domainLog interface {
	SetCapturing(bool)
	Capturing() bool
	Clear()
	Len() int
	Capacity() int
	Stats() (int, uint64, uint64)
}

func (s *Service) domainLog(domain entry.Domain) (domainLog, error) {
	switch domain {
	case entry.DomainConsole:
		return s.logs.Console, nil
	case entry.DomainResource:
		return s.logs.Resources, nil
	case entry.DomainNetwork:
		return s.logs.Network, nil
	case entry.DomainAccessibility:
		return s.logs.Accessibility, nil
	}
	return nil, bridge.NewError(bridge.CodeValidation, "unknown capture domain "+string(domain), nil)
}

func (s *Service) SetCapturing(domain entry.Domain, enabled bool) (DomainStatus, error) {
	l, err := s.domainLog(domain)
	if err != nil {
		return DomainStatus{}, err
	}
	l.SetCapturing(enabled)
	return s.status(domain, l), nil
}

func (s *Service) ClearDomain(domain entry.Domain) (DomainStatus, error) {
	l, err := s.domainLog(domain)
	if err != nil {
		return DomainStatus{}, err
	}
	l.Clear()
	return s.status(domain, l), nil
}

func (s *Service) ClearAll() {
	s.logs.ClearAll()
}

func (s *Service) CaptureStatus() []DomainStatus {
	domains := []entry.Domain{
		entry.DomainConsole, entry.DomainResource,
		entry.DomainNetwork, entry.DomainAccessibility,
	}
	out := make([]DomainStatus, 0, len(domains))
	for _, d := range domains {
		l, _ := s.domainLog(d)
		out = append(out, s.status(d, l))
	}
	return out
}

func (s *Service) status(domain entry.Domain, l domainLog) DomainStatus {
	length, dropped, evicted := l.Stats()
	return DomainStatus{
		Domain:    domain,
		Capturing: l.Capturing(),
		Length:    length,
		Capacity:  l.Capacity(),
		Dropped:   dropped,
		Evicted:   evicted,
	}
}

// --- Performance ---

func (s *Service) Performance(ctx context.Context) perf.Data {
	return s.cdp.LastPerformance()
}

// CollectPerformance takes a fresh snapshot from the page. With reload set
// it first reloads the page and waits for it to report ready, so the scores
// describe a clean load rather than the page's current state.
func (s *Service) CollectPerformance(ctx context.Context, reload bool) (perf.Data, error) {
	if reload {
		if err := s.cdp.Reload(ctx); err != nil {
			return perf.Data{}, wrapEvalErr(err)
		}
		if _, err := s.cdp.WaitForPageReady(ctx); err != nil {
			return perf.Data{}, wrapEvalErr(err)
		}
	}
	data, err := s.cdp.CollectPerformance(ctx)
	if err != nil {
		return perf.Data{}, wrapEvalErr(err)
	}
	return data, nil
}

// --- Page operations ---

// InjectScript evaluates a caller-supplied expression on the page. A blank
// script re-installs the instrumentation bundle instead and reports whether
// the marker flag is set afterwards.
func (s *Service) InjectScript(ctx context.Context, script string) (json.RawMessage, error) {
	if strings.TrimSpace(script) == "" {
		installed, err := s.cdp.ReinstallInstrumentation(ctx)
		if err != nil {
			return nil, wrapEvalErr(err)
		}
		out, _ := json.Marshal(map[string]bool{"installed": installed})
		return out, nil
	}
	result, err := s.cdp.Evaluate(ctx, script)
	if err != nil {
		return nil, wrapEvalErr(err)
	}
	return result, nil
}

func (s *Service) DOMSnapshot(ctx context.Context) (json.RawMessage, error) {
	data, err := s.cdp.DOMSnapshot(ctx)
	if err != nil {
		return nil, wrapEvalErr(err)
	}
	return data, nil
}

func (s *Service) ReloadPage(ctx context.Context, waitReady bool) (ReloadResult, error) {
	if err := s.cdp.Reload(ctx); err != nil {
		return ReloadResult{}, wrapEvalErr(err)
	}
	if !waitReady {
		return ReloadResult{Status: "reloading"}, nil
	}
	state, err := s.cdp.WaitForPageReady(ctx)
	if err != nil {
		return ReloadResult{Status: "timeout", ReadyState: state}, nil
	}
	return ReloadResult{Status: "reloaded", ReadyState: state}, nil
}

// --- Preferences ---

func (s *Service) Preferences() json.RawMessage {
	return s.prefs.Snapshot()
}

func (s *Service) SetPreference(key string, value bool) error {
	if strings.TrimSpace(key) == "" {
		return bridge.NewError(bridge.CodeValidation, "key is required", nil)
	}
	var err error
	if domain, ok := strings.CutPrefix(key, "preserve_log."); ok {
		err = s.prefs.SetPreserveLog(entry.Domain(domain), value)
	} else {
		err = s.prefs.SetBool(key, value)
	}
	if err != nil {
		return bridge.NewError(bridge.CodeStorage, "failed to persist preference", err)
	}
	return nil
}

// --- Sessions ---

func (s *Service) Sessions(ctx context.Context) ([]archive.Session, error) {
	sessions, err := s.arch.Sessions(ctx)
	if err != nil {
		return nil, bridge.NewError(bridge.CodeStorage, "failed to list sessions", err)
	}
	return sessions, nil
}

func (s *Service) ArchiveSession(ctx context.Context) (archive.Session, error) {
	sess, err := s.arch.ArchiveSession(ctx, s.cdp.PrimaryTabURL(), s.logs)
	if err != nil {
		return archive.Session{}, bridge.NewError(bridge.CodeStorage, "failed to archive session", err)
	}

	if s.notifyEndpoint != "" {
		go func() {
			notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := notify.SessionArchived(notifyCtx, nil, s.notifyEndpoint, sess.ID, sess.EntryCount); err != nil {
				slog.Debug("session archive notification failed", "endpoint", s.notifyEndpoint, "error", err)
			}
		}()
	}
	return sess, nil
}

func (s *Service) SessionEntries(ctx context.Context, sessionID string, domain entry.Domain) ([]archive.Record, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, bridge.NewError(bridge.CodeValidation, "session_id is required", nil)
	}
	records, err := s.arch.Entries(ctx, sessionID, domain)
	if err != nil {
		return nil, bridge.NewError(bridge.CodeStorage, "failed to load session entries", err)
	}
	if len(records) == 0 {
		if ok, err := s.sessionExists(ctx, sessionID); err != nil {
			return nil, err
		} else if !ok {
			return nil, bridge.NewError(bridge.CodeSessionNotFound, "session "+sessionID+" not found", nil)
		}
	}
	return records, nil
}

func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if ok, err := s.sessionExists(ctx, sessionID); err != nil {
		return err
	} else if !ok {
		return bridge.NewError(bridge.CodeSessionNotFound, "session "+sessionID+" not found", nil)
	}
	if err := s.arch.DeleteSession(ctx, sessionID); err != nil {
		return bridge.NewError(bridge.CodeStorage, "failed to delete session", err)
	}
	return nil
}

func (s *Service) sessionExists(ctx context.Context, sessionID string) (bool, error) {
	sessions, err := s.arch.Sessions(ctx)
	if err != nil {
		return false, bridge.NewError(bridge.CodeStorage, "failed to list sessions", err)
	}
	for _, sess := range sessions {
		if sess.ID == sessionID {
			return true, nil
		}
	}
	return false, nil
}

// --- Export ---

// Export streams every captured entry to w as JSON lines.
func (s *Service) Export(w io.Writer) error {
	if err := storage.ExportLogs(w, s.logs); err != nil {
		return bridge.NewError(bridge.CodeStorage, "export failed", err)
	}
	return nil
}

// wrapEvalErr maps raw bridge failures onto stable coded errors. Errors that
// already carry a code pass through.
func wrapEvalErr(err error) error {
	var coded *bridge.CodedError
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return bridge.NewError(bridge.CodeEvalTimeout, "page evaluation timed out", err)
	case strings.Contains(err.Error(), "page not ready"):
		return bridge.NewError(bridge.CodeEvalTimeout, "page did not become ready in time", err)
	case strings.Contains(err.Error(), "no attached tabs"):
		return bridge.NewError(bridge.CodeNoTab, "no attached browser tab", err)
	case strings.Contains(err.Error(), "page script error"):
		return bridge.NewError(bridge.CodeEvalFailure, err.Error(), err)
	}
	return bridge.NewError(bridge.CodeCDPUnavailable, "browser connection failed", err)
}
