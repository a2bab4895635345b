package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"call-filter/domain"
)

// Notifier forwards notifications to an external service.
type Notifier interface {
	Send(ctx context.Context, n *domain.Notification) error
}

type HTTPNotifier struct {
	Client   *http.Client
	Endpoint string
	Token    string
}

func NewNotifier(cfg *Config) *HTTPNotifier {
	return &HTTPNotifier{
		Client:   &http.Client{Timeout: 10 * time.Second},
		Endpoint: cfg.NotificationService,
		Token:    cfg.NotificationToken,
	}
}

// Send posts the notification as JSON to <endpoint>/publish. Without an
// endpoint it does nothing.
func (n *HTTPNotifier) Send(ctx context.Context, notification *domain.Notification) error {
	if n.Endpoint == "" {
		return nil
	}
	body, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.Endpoint+"/publish", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("send notification: unexpected status %s", resp.Status)
	}
	return nil
}
