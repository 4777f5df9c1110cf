// Package notify fires the reception webhook a triggered rule may
// configure (§3 Rule: "optional notification webhook + payload"). The
// webhook notifier is an external collaborator per spec.md §1 scope — this
// client only needs to post a payload and swallow failures, the same
// contract as internal/sink, so it builds its own retryablehttp client the
// same way (with its own retry and timeout settings).
package notify

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Event names a notification occasion. The only one this core fires is
// "reception" — a triggered rule's series has been received and staged.
type Event string

// EventReception mirrors mercure_events.RECEPTION in the original source.
const EventReception Event = "reception"

// Notifier posts rule-configured webhook payloads.
type Notifier struct {
	client *retryablehttp.Client
}

// New builds a Notifier.
func New() *Notifier {
	client := retryablehttp.NewClient()
	client.RetryMax = 1
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 500 * time.Millisecond
	client.HTTPClient.Timeout = 2 * time.Second
	client.Logger = nil
	return &Notifier{client: client}
}

// SendWebhook posts payload to webhookURL, tagging the request with
// event. An empty webhookURL is a no-op — most rules do not configure
// notifications. Failures are logged, never returned: a downstream
// webhook receiver being unreachable must not affect routing.
func (n *Notifier) SendWebhook(ctx context.Context, webhookURL, payload string, event Event) {
	if webhookURL == "" {
		return
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader([]byte(payload)))
	if err != nil {
		slog.Warn("notify: build request", "url", webhookURL, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hermes-Event", string(event))

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("notify: webhook failed", "url", webhookURL, "error", err)
		return
	}
	_ = resp.Body.Close()
}
