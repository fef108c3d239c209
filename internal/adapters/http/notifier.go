package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
	"github.com/Jaydccq/mini-ups-sub001/internal/ports"
)

// Notifier implements ports.Notifier by POSTing each event as JSON.
type Notifier struct {
	client  ports.HTTPClient
	url     string
	authKey string
	logger  ports.Logger
}

// NewNotifier creates a webhook notifier. authKey may be empty.
func NewNotifier(client ports.HTTPClient, url, authKey string, logger ports.Logger) *Notifier {
	return &Notifier{
		client:  client,
		url:     url,
		authKey: authKey,
		logger:  logger,
	}
}

// Notify sends event to the webhook.
func (n *Notifier) Notify(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Id", event.ID)
	req.Header.Set("X-Event-Kind", string(event.Kind))
	if n.authKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.authKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Debug("event delivered",
		ports.String("kind", string(event.Kind)),
		ports.String("event_id", event.ID),
	)
	return nil
}
