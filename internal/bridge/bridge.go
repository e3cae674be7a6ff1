// Package bridge owns the CDP side of the agent: it attaches to browser
// tabs, installs the page instrumentation, and funnels binding calls and
// network events into the bounded collections.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/winahq/walnut_agent/internal/collection"
	"github.com/winahq/walnut_agent/internal/config"
	"github.com/winahq/walnut_agent/internal/entry"
	"github.com/winahq/walnut_agent/internal/inject"
	"github.com/winahq/walnut_agent/internal/perf"
	"github.com/winahq/walnut_agent/internal/prefs"
	"github.com/winahq/walnut_agent/internal/storage"
	"github.com/winahq/walnut_agent/internal/stream"
)

const eventBufSize = 2048

// Client manages CDP connections to browser tabs and routes everything the
// page reports into the collections.
type Client struct {
	cfg        *config.Config
	logs       *collection.Logs
	prefStore  *prefs.Store
	hub        *stream.Hub
	writers    *storage.WriterRegistry
	netCapture *NetworkCapture

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabs        map[target.ID]*TabContext
	tabOrder    []target.ID
	tabsMu      sync.RWMutex

	perfMu   sync.RWMutex
	lastPerf perf.Data

	events chan tabEvent
	done   chan struct{}
}

// TabContext is one attached browser tab.
type TabContext struct {
	ID     target.ID
	URL    string
	ctx    context.Context
	cancel context.CancelFunc
}

type tabEvent struct {
	tabID target.ID
	ev    any
}

// NewClient creates a bridge client. hub and writers may be nil when live
// streaming or JSONL persistence is disabled.
func NewClient(cfg *config.Config, logs *collection.Logs, prefStore *prefs.Store, hub *stream.Hub, writers *storage.WriterRegistry) *Client {
	c := &Client{
		cfg:       cfg,
		logs:      logs,
		prefStore: prefStore,
		hub:       hub,
		writers:   writers,
		tabs:      make(map[target.ID]*TabContext),
		lastPerf:  perf.Data{State: perf.StateNoData},
		events:    make(chan tabEvent, eventBufSize),
		done:      make(chan struct{}),
	}
	c.netCapture = NewNetworkCapture(logs, func(e entry.NetworkEntry) {
		c.emit(entry.DomainNetwork, e)
	})
	return c
}

// Connect attaches to every page target matching the tab URL filter and
// starts the dispatch loop.
func (c *Client) Connect(ctx context.Context) error {
	cdpURL := c.cfg.CDPURL()
	slog.Info("Connecting to browser", "url", cdpURL)

	c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cdpURL)

	tempCtx, tempCancel := chromedp.NewContext(c.allocCtx)
	defer tempCancel()

	if err := chromedp.Run(tempCtx); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return fmt.Errorf("failed to enumerate targets: %w", err)
	}

	slog.Info("Found browser targets", "count", len(targets))

	attachedCount := 0
	for _, t := range targets {
		if t.Type != "page" {
			continue
		}
		if !c.matchesTabURL(t.URL) {
			slog.Debug("Skipping tab (url filter)", "url", t.URL)
			continue
		}
		if err := c.attachToTab(t.TargetID, t.URL); err != nil {
			slog.Error("Failed to attach to tab", "target_id", t.TargetID, "url", t.URL, "error", err)
			continue
		}
		attachedCount++
	}

	if attachedCount == 0 {
		return fmt.Errorf("no tabs found matching WALNUT_TAB_URL_FILTER=%q", c.cfg.TabURLFilter)
	}

	go c.dispatchLoop()

	slog.Info("Attached to tabs", "count", attachedCount, "tab_url_filter", c.cfg.TabURLFilter)
	return nil
}

func (c *Client) attachToTab(targetID target.ID, url string) error {
	tabCtx, tabCancel := chromedp.NewContext(c.allocCtx, chromedp.WithTargetID(targetID))
	tab := &TabContext{ID: targetID, URL: url, ctx: tabCtx, cancel: tabCancel}

	err := chromedp.Run(tabCtx,
		network.Enable(),
		page.Enable(),
		runtime.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, name := range []string{inject.BindingConsole, inject.BindingResources, inject.BindingPerformance, inject.BindingAccessibility} {
				if err := runtime.AddBinding(name).Do(ctx); err != nil {
					return fmt.Errorf("add binding %s: %w", name, err)
				}
			}
			return nil
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// New documents get instrumented before any page script runs.
			_, err := page.AddScriptToEvaluateOnNewDocument(inject.InstrumentationScript()).Do(ctx)
			return err
		}),
		// The already-loaded document gets the same bundle immediately.
		chromedp.Evaluate(inject.InstrumentationScript(), nil),
	)
	if err != nil {
		tabCancel()
		return fmt.Errorf("failed to instrument tab: %w", err)
	}

	c.tabsMu.Lock()
	c.tabs[targetID] = tab
	c.tabOrder = append(c.tabOrder, targetID)
	c.tabsMu.Unlock()

	chromedp.ListenTarget(tabCtx, c.createEventHandler(targetID))

	slog.Info("Attached to tab", "target_id", targetID, "url", truncateURL(url))
	return nil
}

// createEventHandler forwards CDP events into the dispatch channel. Sends
// never block: the listener runs on chromedp's event goroutine.
func (c *Client) createEventHandler(tabID target.ID) func(ev any) {
	return func(ev any) {
		switch ev.(type) {
		case *runtime.EventBindingCalled,
			*page.EventFrameNavigated,
			*page.EventNavigatedWithinDocument,
			*network.EventRequestWillBeSent,
			*network.EventResponseReceived,
			*network.EventLoadingFinished,
			*network.EventLoadingFailed:
			select {
			case c.events <- tabEvent{tabID: tabID, ev: ev}:
			default:
				slog.Warn("Event buffer full, dropping CDP event", "tab_id", tabID)
			}
		}
	}
}

// dispatchLoop is the single writer into the collections. Everything that
// appends an entry runs here, so ordering matches arrival order.
func (c *Client) dispatchLoop() {
	for {
		select {
		case <-c.done:
			return
		case te := <-c.events:
			c.handleEvent(te)
		}
	}
}

func (c *Client) handleEvent(te tabEvent) {
	switch e := te.ev.(type) {
	case *runtime.EventBindingCalled:
		c.handleBinding(e)
	case *page.EventFrameNavigated:
		if e.Frame.ParentID == "" {
			c.handleNavigation(te.tabID, e.Frame.URL, false)
		}
	case *page.EventNavigatedWithinDocument:
		c.handleNavigation(te.tabID, e.URL, true)
	case *network.EventRequestWillBeSent:
		c.netCapture.OnRequestWillBeSent(e)
	case *network.EventResponseReceived:
		c.netCapture.OnResponseReceived(e)
	case *network.EventLoadingFinished:
		c.netCapture.OnLoadingFinished(e)
	case *network.EventLoadingFailed:
		c.netCapture.OnLoadingFailed(e)
	}
}

func (c *Client) handleBinding(ev *runtime.EventBindingCalled) {
	payload := []byte(ev.Payload)

	switch ev.Name {
	case inject.BindingConsole:
		e, err := entry.DecodeConsole(payload)
		if err != nil {
			slog.Debug("Dropping malformed console payload", "error", err)
			return
		}
		if c.logs.Console.Append(e) {
			c.emit(entry.DomainConsole, e)
		}
	case inject.BindingResources:
		e, err := entry.DecodeResource(payload)
		if err != nil {
			slog.Debug("Dropping malformed resource payload", "error", err)
			return
		}
		if c.logs.Resources.Append(e) {
			c.emit(entry.DomainResource, e)
		}
	case inject.BindingPerformance:
		result := perf.Compute(perf.DecodeSnapshot(payload))
		if result.State == perf.StateNoData {
			slog.Debug("Dropping empty performance payload")
			return
		}
		c.perfMu.Lock()
		c.lastPerf = result
		c.perfMu.Unlock()
		if c.hub != nil {
			c.hub.Publish(stream.Event{Domain: "performance", Kind: "aggregate", Payload: result})
		}
	case inject.BindingAccessibility:
		e, err := entry.DecodeAccessibility(payload)
		if err != nil {
			slog.Debug("Dropping malformed accessibility payload", "error", err)
			return
		}
		if c.logs.Accessibility.Append(e) {
			c.emit(entry.DomainAccessibility, e)
		}
	}
}

// handleNavigation clears non-preserved collections and invalidates the
// performance aggregate. SPA navigations keep the collections: the document
// and its timing entries survive those.
func (c *Client) handleNavigation(tabID target.ID, url string, withinDocument bool) {
	c.tabsMu.Lock()
	if tab, ok := c.tabs[tabID]; ok {
		tab.URL = url
	}
	c.tabsMu.Unlock()

	if withinDocument {
		slog.Info("Tab navigated (SPA)", "tab_id", tabID, "url", truncateURL(url))
		return
	}

	slog.Info("Tab navigated", "tab_id", tabID, "url", truncateURL(url))

	var preserved func(entry.Domain) bool
	if c.prefStore != nil {
		preserved = c.prefStore.PreserveLog
	} else {
		preserved = func(entry.Domain) bool { return false }
	}
	c.logs.ClearForNavigation(preserved)

	c.perfMu.Lock()
	c.lastPerf = perf.Data{State: perf.StateNoData}
	c.perfMu.Unlock()

	if c.hub != nil {
		c.hub.Publish(stream.Event{Domain: "page", Kind: "navigated", Payload: url})
	}
}

// emit pushes an appended entry to live subscribers and the JSONL writers.
func (c *Client) emit(domain entry.Domain, e any) {
	if c.hub != nil {
		c.hub.Publish(stream.Event{Domain: string(domain), Kind: "entry", Payload: e})
	}
	if c.writers != nil {
		if err := c.writers.Writer(domain).Write(e); err != nil {
			slog.Debug("JSONL persist failed", "domain", domain, "error", err)
		}
	}
}

// Close tears down the dispatch loop and all tab contexts.
func (c *Client) Close() error {
	close(c.done)
	c.netCapture.Close()

	c.tabsMu.Lock()
	for _, tab := range c.tabs {
		tab.cancel()
	}
	c.tabs = make(map[target.ID]*TabContext)
	c.tabOrder = nil
	c.tabsMu.Unlock()

	if c.allocCancel != nil {
		c.allocCancel()
	}

	slog.Info("Bridge client closed")
	return nil
}

// TabCount returns the number of attached tabs.
func (c *Client) TabCount() int {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	return len(c.tabs)
}

// PrimaryTabURL returns the current URL of the first attached tab.
func (c *Client) PrimaryTabURL() string {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	if len(c.tabOrder) == 0 {
		return ""
	}
	if tab, ok := c.tabs[c.tabOrder[0]]; ok {
		return tab.URL
	}
	return ""
}

// primaryTab returns the first attached tab context; evaluation targets it.
func (c *Client) primaryTab() (*TabContext, error) {
	c.tabsMu.RLock()
	defer c.tabsMu.RUnlock()
	for _, id := range c.tabOrder {
		if tab, ok := c.tabs[id]; ok {
			return tab, nil
		}
	}
	return nil, fmt.Errorf("no attached tabs")
}

func (c *Client) matchesTabURL(url string) bool {
	if c.cfg.TabURLFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(c.cfg.TabURLFilter))
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
