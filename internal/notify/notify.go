// Package notify posts plain-text webhook messages for agent events, such
// as a capture session being archived.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SessionArchived sends a short message announcing an archived session.
func SessionArchived(ctx context.Context, client *http.Client, endpoint, sessionID string, entryCount int) error {
	msg := fmt.Sprintf("capture session %s archived with %d entries", sessionID, entryCount)
	return Send(ctx, client, endpoint, msg)
}

// Send sends a message to the requested endpoint using HTTP POST.
func Send(ctx context.Context, client *http.Client, endpoint, message string) error {
	c := client
	if c == nil {
		c = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(message))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification failed: status=%d", resp.StatusCode)
	}
	return nil
}
