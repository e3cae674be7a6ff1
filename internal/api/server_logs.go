package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/winahq/walnut_agent/internal/collection"
	"github.com/winahq/walnut_agent/internal/controller"
	"github.com/winahq/walnut_agent/internal/entry"
)

type LimitInput struct {
	Limit int `query:"limit" default:"0" doc:"Return only the most recent N entries. 0 returns everything."`
}

type domainInput struct {
	Domain string `path:"domain" enum:"console,resource,network,accessibility" doc:"Capture domain"`
}

type domainStatusOutput struct {
	Body controller.DomainStatus
}

func registerLogHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body controller.HealthInfo
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body = svc.Health(ctx)
			return out, nil
		})

	type consoleInput struct {
		Level string `query:"level" doc:"Filter by console level (log, info, warn, error, debug)"`
		Q     string `query:"q" doc:"Free-text filter over message and source"`
		LimitInput
	}
	type consoleOutput struct {
		Body struct {
			Entries []entry.ConsoleEntry `json:"entries"`
			Count   int                  `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "query-console", Method: http.MethodGet, Path: "/api/v1/logs/console", Summary: "Query captured console entries", Tags: []string{"Logs"}},
		func(ctx context.Context, input *consoleInput) (*consoleOutput, error) {
			entries, err := svc.QueryConsole(ctx, input.Level, input.Q, input.Limit)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &consoleOutput{}
			out.Body.Entries = entries
			out.Body.Count = len(entries)
			return out, nil
		})

	type resourceInput struct {
		Category string `query:"category" doc:"Filter by resource category (script, stylesheet, image, ...)"`
		Q        string `query:"q" doc:"Free-text filter over the URL"`
		LimitInput
	}
	type resourceOutput struct {
		Body struct {
			Entries []entry.ResourceEntry `json:"entries"`
			Count   int                   `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "query-resources", Method: http.MethodGet, Path: "/api/v1/logs/resources", Summary: "Query captured resource timing entries", Tags: []string{"Logs"}},
		func(ctx context.Context, input *resourceInput) (*resourceOutput, error) {
			entries, err := svc.QueryResources(ctx, input.Category, input.Q, input.Limit)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &resourceOutput{}
			out.Body.Entries = entries
			out.Body.Count = len(entries)
			return out, nil
		})

	type summaryOutput struct {
		Body struct {
			Categories []collection.CategorySummary `json:"categories"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "resource-summary", Method: http.MethodGet, Path: "/api/v1/logs/resources/summary", Summary: "Per-category resource counts and byte totals", Tags: []string{"Logs"}},
		func(ctx context.Context, input *struct{}) (*summaryOutput, error) {
			out := &summaryOutput{}
			out.Body.Categories = svc.ResourceSummary(ctx)
			return out, nil
		})

	type networkInput struct {
		Method string `query:"method" doc:"Filter by HTTP method"`
		Q      string `query:"q" doc:"Free-text filter over the URL"`
		LimitInput
	}
	type networkOutput struct {
		Body struct {
			Entries []entry.NetworkEntry `json:"entries"`
			Count   int                  `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "query-network", Method: http.MethodGet, Path: "/api/v1/logs/network", Summary: "Query host-observed network entries", Tags: []string{"Logs"}},
		func(ctx context.Context, input *networkInput) (*networkOutput, error) {
			entries, err := svc.QueryNetwork(ctx, input.Method, input.Q, input.Limit)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &networkOutput{}
			out.Body.Entries = entries
			out.Body.Count = len(entries)
			return out, nil
		})

	type accessibilityInput struct {
		Impact string `query:"impact" doc:"Filter by impact level (minor, moderate, serious, critical, unknown)"`
		LimitInput
	}
	type accessibilityOutput struct {
		Body struct {
			Entries []entry.AccessibilityEntry `json:"entries"`
			Count   int                        `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "query-accessibility", Method: http.MethodGet, Path: "/api/v1/logs/accessibility", Summary: "Query captured accessibility findings", Tags: []string{"Logs"}},
		func(ctx context.Context, input *accessibilityInput) (*accessibilityOutput, error) {
			entries, err := svc.QueryAccessibility(ctx, input.Impact, input.Limit)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &accessibilityOutput{}
			out.Body.Entries = entries
			out.Body.Count = len(entries)
			return out, nil
		})

	// --- Capture control ---

	type captureStatusOutput struct {
		Body struct {
			Domains []controller.DomainStatus `json:"domains"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "capture-status", Method: http.MethodGet, Path: "/api/v1/capture/status", Summary: "Capture state and counters per domain", Tags: []string{"Capture"}},
		func(ctx context.Context, input *struct{}) (*captureStatusOutput, error) {
			out := &captureStatusOutput{}
			out.Body.Domains = svc.CaptureStatus()
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "pause-capture", Method: http.MethodPost, Path: "/api/v1/capture/{domain}/pause", Summary: "Pause capture for a domain", Tags: []string{"Capture"}},
		func(ctx context.Context, input *domainInput) (*domainStatusOutput, error) {
			status, err := svc.SetCapturing(entry.Domain(input.Domain), false)
			if err != nil {
				return nil, mapErr(err)
			}
			return &domainStatusOutput{Body: status}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "resume-capture", Method: http.MethodPost, Path: "/api/v1/capture/{domain}/resume", Summary: "Resume capture for a domain", Tags: []string{"Capture"}},
		func(ctx context.Context, input *domainInput) (*domainStatusOutput, error) {
			status, err := svc.SetCapturing(entry.Domain(input.Domain), true)
			if err != nil {
				return nil, mapErr(err)
			}
			return &domainStatusOutput{Body: status}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "clear-domain", Method: http.MethodPost, Path: "/api/v1/capture/{domain}/clear", Summary: "Clear one domain's collection", Tags: []string{"Capture"}},
		func(ctx context.Context, input *domainInput) (*domainStatusOutput, error) {
			status, err := svc.ClearDomain(entry.Domain(input.Domain))
			if err != nil {
				return nil, mapErr(err)
			}
			return &domainStatusOutput{Body: status}, nil
		})

	type clearAllOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "clear-all", Method: http.MethodPost, Path: "/api/v1/capture/clear", Summary: "Clear every collection", Tags: []string{"Capture"}},
		func(ctx context.Context, input *struct{}) (*clearAllOutput, error) {
			svc.ClearAll()
			out := &clearAllOutput{}
			out.Body.Status = "cleared"
			return out, nil
		})
}
