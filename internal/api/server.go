// Package api exposes the capture pipeline over HTTP: query views on the
// collections, capture control, page operations, and session archival.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/winahq/walnut_agent/internal/archive"
	"github.com/winahq/walnut_agent/internal/bridge"
	"github.com/winahq/walnut_agent/internal/collection"
	"github.com/winahq/walnut_agent/internal/controller"
	"github.com/winahq/walnut_agent/internal/entry"
	"github.com/winahq/walnut_agent/internal/perf"
	"github.com/winahq/walnut_agent/internal/stream"
)

type Service interface {
	Health(ctx context.Context) controller.HealthInfo
	QueryConsole(ctx context.Context, level, q string, limit int) ([]entry.ConsoleEntry, error)
	QueryResources(ctx context.Context, category, q string, limit int) ([]entry.ResourceEntry, error)
	ResourceSummary(ctx context.Context) []collection.CategorySummary
	QueryNetwork(ctx context.Context, method, q string, limit int) ([]entry.NetworkEntry, error)
	QueryAccessibility(ctx context.Context, impact string, limit int) ([]entry.AccessibilityEntry, error)
	SetCapturing(domain entry.Domain, enabled bool) (controller.DomainStatus, error)
	ClearDomain(domain entry.Domain) (controller.DomainStatus, error)
	ClearAll()
	CaptureStatus() []controller.DomainStatus
	Performance(ctx context.Context) perf.Data
	CollectPerformance(ctx context.Context, reload bool) (perf.Data, error)
	InjectScript(ctx context.Context, script string) (json.RawMessage, error)
	DOMSnapshot(ctx context.Context) (json.RawMessage, error)
	ReloadPage(ctx context.Context, waitReady bool) (controller.ReloadResult, error)
	Preferences() json.RawMessage
	SetPreference(key string, value bool) error
	Sessions(ctx context.Context) ([]archive.Session, error)
	ArchiveSession(ctx context.Context) (archive.Session, error)
	SessionEntries(ctx context.Context, sessionID string, domain entry.Domain) ([]archive.Record, error)
	DeleteSession(ctx context.Context, sessionID string) error
	Export(w io.Writer) error
}

// NewServer builds the HTTP handler. hub may be nil to disable /stream.
func NewServer(svc Service, hub *stream.Hub) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Walnut Agent API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	router.Get("/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Header().Set("Content-Disposition", `attachment; filename="walnut_export.jsonl"`)
		if err := svc.Export(w); err != nil {
			slog.Error("export failed", "error", err)
		}
	})

	if hub != nil {
		router.Get("/stream", stream.Handler(hub))
	}

	registerLogHandlers(api, svc)
	registerPageHandlers(api, svc)
	registerSessionHandlers(api, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *bridge.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case bridge.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case bridge.CodeSessionNotFound:
			return huma.Error404NotFound(coded.Message)
		case bridge.CodeEvalTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case bridge.CodeNoTab, bridge.CodeCDPUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
