package stream

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Handler returns an http.HandlerFunc that upgrades the connection to a
// WebSocket and streams hub events. Clients may filter capture domains via
// a ?domains=console,network query parameter.
func Handler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var domainFilter map[string]bool
		if q := r.URL.Query().Get("domains"); q != "" {
			domainFilter = make(map[string]bool)
			for _, d := range strings.Split(q, ",") {
				if d = strings.TrimSpace(d); d != "" {
					domainFilter[d] = true
				}
			}
		}

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Debug("stream: upgrade failed", "error", err)
			return
		}

		id, ch := hub.Subscribe()
		slog.Debug("stream: client connected", "subscriber_id", id)

		// Reader goroutine: its only job is to notice the peer going away.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := wsutil.ReadClientData(conn); err != nil {
					return
				}
			}
		}()

		defer func() {
			hub.Unsubscribe(id)
			conn.Close()
			slog.Debug("stream: client disconnected", "subscriber_id", id)
		}()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-closed:
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if domainFilter != nil && !domainFilter[evt.Domain] {
					continue
				}
				data, err := json.Marshal(evt)
				if err != nil {
					slog.Error("stream: encode event", "error", err)
					continue
				}
				if err := wsutil.WriteServerText(conn, data); err != nil {
					return
				}
			}
		}
	}
}
