package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/tidwall/gjson"

	"github.com/winahq/walnut_agent/internal/inject"
	"github.com/winahq/walnut_agent/internal/perf"
)

// Evaluate runs an arbitrary JS expression on the primary tab and returns
// the raw JSON result value.
func (c *Client) Evaluate(ctx context.Context, expression string) (json.RawMessage, error) {
	tab, err := c.primaryTab()
	if err != nil {
		return nil, err
	}

	evalCtx, cancel := c.withEvalTimeout(tab.ctx, ctx)
	defer cancel()

	var raw []byte
	err = chromedp.Run(evalCtx, chromedp.Evaluate(expression, &raw,
		func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithReturnByValue(true).WithAwaitPromise(true)
		}))
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return raw, nil
}

// evalEnvelope runs a wrapped script and unpacks its {ok, data} envelope.
func (c *Client) evalEnvelope(ctx context.Context, script string) ([]byte, error) {
	raw, err := c.Evaluate(ctx, script)
	if err != nil {
		return nil, err
	}

	// Wrapped scripts return a JSON.stringify'd string.
	var envelope string
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("unexpected evaluation result: %s", raw)
	}

	parsed := gjson.Parse(envelope)
	if !parsed.Get("ok").Bool() {
		msg := parsed.Get("error").String()
		if msg == "" {
			msg = "page script failed"
		}
		return nil, fmt.Errorf("page script error: %s", msg)
	}
	return []byte(parsed.Get("data").Raw), nil
}

// CollectPerformance takes a fresh snapshot from the page, recomputes the
// aggregate wholesale, and stores it as the latest result.
func (c *Client) CollectPerformance(ctx context.Context) (perf.Data, error) {
	data, err := c.evalEnvelope(ctx, inject.CollectPerformanceScript())
	if err != nil {
		return perf.Data{}, err
	}

	snapshot := perf.DecodeSnapshot(data)
	result := perf.Compute(snapshot)

	c.perfMu.Lock()
	c.lastPerf = result
	c.perfMu.Unlock()

	return result, nil
}

// LastPerformance returns the most recently computed aggregate. Before any
// collection (or right after a navigation) the state is no_data.
func (c *Client) LastPerformance() perf.Data {
	c.perfMu.RLock()
	defer c.perfMu.RUnlock()
	return c.lastPerf
}

// DOMSnapshot serializes the current document and stylesheet sources.
func (c *Client) DOMSnapshot(ctx context.Context) (json.RawMessage, error) {
	return c.evalEnvelope(ctx, inject.DOMSnapshotScript())
}

// ReinstallInstrumentation re-evaluates the instrumentation bundle on the
// primary tab and reports whether the marker flag is set afterwards. The
// bundle's own guard makes this a no-op on an already instrumented page.
func (c *Client) ReinstallInstrumentation(ctx context.Context) (bool, error) {
	if _, err := c.Evaluate(ctx, inject.InstrumentationScript()); err != nil {
		return false, err
	}
	return c.InstrumentationInstalled(ctx)
}

// InstrumentationInstalled probes for the page-side marker flag.
func (c *Client) InstrumentationInstalled(ctx context.Context) (bool, error) {
	data, err := c.evalEnvelope(ctx, inject.InstalledProbeScript())
	if err != nil {
		return false, err
	}
	return gjson.GetBytes(data, "installed").Bool(), nil
}

// Reload reloads the primary tab. The navigation event that follows clears
// non-preserved collections.
func (c *Client) Reload(ctx context.Context) error {
	tab, err := c.primaryTab()
	if err != nil {
		return err
	}

	evalCtx, cancel := c.withEvalTimeout(tab.ctx, ctx)
	defer cancel()

	if err := chromedp.Run(evalCtx, chromedp.Reload()); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

// WaitForPageReady polls document.readyState until the page reports
// complete, the ceiling elapses, or ctx is cancelled. Returns the last
// observed ready state.
func (c *Client) WaitForPageReady(ctx context.Context) (string, error) {
	interval := time.Duration(c.cfg.PollIntervalMS) * time.Millisecond
	ceiling := time.Duration(c.cfg.PollCeilingMS) * time.Millisecond

	deadline := time.Now().Add(ceiling)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastState := "unknown"
	for {
		data, err := c.evalEnvelope(ctx, inject.ReadyStateScript())
		if err == nil {
			lastState = gjson.GetBytes(data, "ready").String()
			if lastState == "complete" {
				return lastState, nil
			}
		}

		if time.Now().After(deadline) {
			return lastState, fmt.Errorf("page not ready after %s (state %s)", ceiling, lastState)
		}

		select {
		case <-ctx.Done():
			return lastState, ctx.Err()
		case <-ticker.C:
		}
	}
}

// withEvalTimeout derives an evaluation context from the tab, bounded by
// both the configured timeout and the caller's context.
func (c *Client) withEvalTimeout(tabCtx, callerCtx context.Context) (context.Context, context.CancelFunc) {
	timeout := time.Duration(c.cfg.EvalTimeoutMS) * time.Millisecond
	evalCtx, cancel := context.WithTimeout(tabCtx, timeout)

	stop := context.AfterFunc(callerCtx, cancel)
	return evalCtx, func() {
		stop()
		cancel()
	}
}
