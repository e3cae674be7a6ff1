package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/winahq/walnut_agent/internal/controller"
	"github.com/winahq/walnut_agent/internal/perf"
)

func registerPageHandlers(api huma.API, svc Service) {
	type perfOutput struct {
		Body perf.Data
	}
	huma.Register(api, huma.Operation{OperationID: "get-performance", Method: http.MethodGet, Path: "/api/v1/performance", Summary: "Latest performance aggregate", Tags: []string{"Performance"}},
		func(ctx context.Context, input *struct{}) (*perfOutput, error) {
			out := &perfOutput{}
			out.Body = svc.Performance(ctx)
			return out, nil
		})

	type collectInput struct {
		Body struct {
			Reload bool `json:"reload,omitempty" doc:"Reload the page and wait for it to report ready before collecting"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "collect-performance", Method: http.MethodPost, Path: "/api/v1/performance/collect", Summary: "Take a fresh performance snapshot and recompute the aggregate, optionally after a clean reload", Tags: []string{"Performance"}},
		func(ctx context.Context, input *collectInput) (*perfOutput, error) {
			data, err := svc.CollectPerformance(ctx, input.Body.Reload)
			if err != nil {
				return nil, mapErr(err)
			}
			return &perfOutput{Body: data}, nil
		})

	type domOutput struct {
		Body json.RawMessage
	}
	huma.Register(api, huma.Operation{OperationID: "dom-snapshot", Method: http.MethodGet, Path: "/api/v1/dom", Summary: "Serialize the current document and stylesheets", Tags: []string{"Page"}},
		func(ctx context.Context, input *struct{}) (*domOutput, error) {
			data, err := svc.DOMSnapshot(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &domOutput{Body: data}, nil
		})

	type injectInput struct {
		Body struct {
			Script string `json:"script,omitempty" doc:"JS expression to evaluate on the page; empty re-installs the instrumentation bundle"`
		}
	}
	type injectOutput struct {
		Body struct {
			Result json.RawMessage `json:"result"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "inject-script", Method: http.MethodPost, Path: "/api/v1/inject", Summary: "Evaluate a JS expression on the page, or re-install the instrumentation", Tags: []string{"Page"}},
		func(ctx context.Context, input *injectInput) (*injectOutput, error) {
			result, err := svc.InjectScript(ctx, input.Body.Script)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &injectOutput{}
			out.Body.Result = result
			return out, nil
		})

	type reloadInput struct {
		Body struct {
			WaitReady bool `json:"wait_ready,omitempty" doc:"Poll document.readyState until the page is complete"`
		}
	}
	type reloadOutput struct {
		Body controller.ReloadResult
	}
	huma.Register(api, huma.Operation{OperationID: "reload-page", Method: http.MethodPost, Path: "/api/v1/page/reload", Summary: "Reload the attached page", Tags: []string{"Page"}},
		func(ctx context.Context, input *reloadInput) (*reloadOutput, error) {
			result, err := svc.ReloadPage(ctx, input.Body.WaitReady)
			if err != nil {
				return nil, mapErr(err)
			}
			return &reloadOutput{Body: result}, nil
		})
}
