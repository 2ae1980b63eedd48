// Package notify delivers best-effort operator notifications. Delivery
// failures are logged and never escalate into the pipeline.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inkworks/folio/config"
	"github.com/inkworks/folio/pkg/logger"
)

// Notifier sends a message to the operator.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// WebhookNotifier posts JSON messages to a configured webhook. When no
// webhook URL is configured it degrades to a no-op with a warning at
// construction time.
type WebhookNotifier struct {
	url        string
	authToken  string
	httpClient *http.Client
	logger     logger.Logger
}

type webhookPayload struct {
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

func NewWebhookNotifier(cfg config.NotifyConfig, log logger.Logger) *WebhookNotifier {
	if cfg.WebhookURL == "" {
		log.Warn("No webhook URL configured, operator notifications disabled")
	}
	return &WebhookNotifier{
		url:       cfg.WebhookURL,
		authToken: cfg.AuthToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

// Notify implements Notifier.Notify
func (n *WebhookNotifier) Notify(ctx context.Context, message string) {
	if n.url == "" {
		return
	}

	body, err := json.Marshal(webhookPayload{
		Text:      message,
		Source:    "folio",
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		n.logger.Error("Failed to marshal notification", logger.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("Failed to create notification request", logger.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if n.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+n.authToken)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error("Failed to deliver notification", logger.Error(err))
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Error("Notification rejected",
			logger.Int("status", resp.StatusCode),
		)
		return
	}

	n.logger.Debug("Notification delivered", logger.String("message", message))
}

// Message formats the standard page-exhausted notification.
func Message(docPath string, page, attempts int, cause error) string {
	return fmt.Sprintf("folio: processing of %s halted at page %d after %d attempts: %v",
		docPath, page, attempts, cause)
}
