package bridge

import (
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/google/uuid"

	"github.com/winahq/walnut_agent/internal/collection"
	"github.com/winahq/walnut_agent/internal/entry"
)

// NetworkCapture correlates CDP network events into finished network entries.
// Requests are held in a pending map from request start until loading
// finishes or fails.
type NetworkCapture struct {
	logs    *collection.Logs
	onEntry func(entry.NetworkEntry)

	pending   map[string]*pendingRequest
	pendingMu sync.Mutex

	done chan struct{}
}

type pendingRequest struct {
	entry     entry.NetworkEntry
	timestamp time.Time
}

// NewNetworkCapture creates a capture layer writing into the network
// collection. onEntry, if non-nil, runs for every appended entry.
func NewNetworkCapture(logs *collection.Logs, onEntry func(entry.NetworkEntry)) *NetworkCapture {
	n := &NetworkCapture{
		logs:    logs,
		onEntry: onEntry,
		pending: make(map[string]*pendingRequest),
		done:    make(chan struct{}),
	}
	go n.cleanupLoop()
	return n
}

func (n *NetworkCapture) Close() {
	close(n.done)
}

func (n *NetworkCapture) OnRequestWillBeSent(ev *network.EventRequestWillBeSent) {
	e := entry.NetworkEntry{
		ID:        uuid.New().String(),
		URL:       ev.Request.URL,
		Method:    ev.Request.Method,
		Headers:   headerMapToStringMap(ev.Request.Headers),
		Timestamp: time.Now().UTC(),
	}

	n.pendingMu.Lock()
	n.pending[string(ev.RequestID)] = &pendingRequest{entry: e, timestamp: time.Now()}
	n.pendingMu.Unlock()
}

func (n *NetworkCapture) OnResponseReceived(ev *network.EventResponseReceived) {
	n.pendingMu.Lock()
	defer n.pendingMu.Unlock()

	p, ok := n.pending[string(ev.RequestID)]
	if !ok {
		return
	}
	p.entry.Status = int(ev.Response.Status)
	p.entry.StatusText = ev.Response.StatusText
	p.entry.ResourceType = string(ev.Type)
	for k, v := range headerMapToStringMap(ev.Response.Headers) {
		if p.entry.Headers == nil {
			p.entry.Headers = make(map[string]string)
		}
		p.entry.Headers[k] = v
	}
}

func (n *NetworkCapture) OnLoadingFinished(ev *network.EventLoadingFinished) {
	n.pendingMu.Lock()
	p, ok := n.pending[string(ev.RequestID)]
	if ok {
		delete(n.pending, string(ev.RequestID))
	}
	n.pendingMu.Unlock()

	if !ok {
		return
	}

	p.entry.EncodedBytes = int64(ev.EncodedDataLength)
	n.append(p.entry)
}

func (n *NetworkCapture) OnLoadingFailed(ev *network.EventLoadingFailed) {
	n.pendingMu.Lock()
	p, ok := n.pending[string(ev.RequestID)]
	if ok {
		delete(n.pending, string(ev.RequestID))
	}
	n.pendingMu.Unlock()

	if !ok {
		return
	}

	p.entry.Failed = true
	p.entry.FailReason = ev.ErrorText
	n.append(p.entry)
}

func (n *NetworkCapture) append(e entry.NetworkEntry) {
	if !n.logs.Network.Append(e) {
		return
	}
	if n.onEntry != nil {
		n.onEntry(e)
	}
}

func (n *NetworkCapture) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n.cleanupStale()
		case <-n.done:
			return
		}
	}
}

// cleanupStale drops requests that never saw a terminal event.
func (n *NetworkCapture) cleanupStale() {
	threshold := time.Now().Add(-5 * time.Minute)

	n.pendingMu.Lock()
	defer n.pendingMu.Unlock()

	for id, p := range n.pending {
		if p.timestamp.Before(threshold) {
			delete(n.pending, id)
		}
	}
}

func headerMapToStringMap(headers map[string]any) map[string]string {
	result := make(map[string]string, len(headers))
	for k, v := range headers {
		if s, ok := v.(string); ok {
			result[k] = s
		}
	}
	return result
}
