package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"chat_notifier/internal/serviceworker/domain"
	"chat_notifier/pkg/config"
	"chat_notifier/pkg/logger"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
)

// pushPayload what the receiving push service worker expects
type pushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	Icon  string `json:"icon,omitempty"`
	URL   string `json:"url,omitempty"`
	Tag   string `json:"tag"`
}

// WebPushDisplayer delivers notifications to one browser push subscription
type WebPushDisplayer struct {
	sub  *webpush.Subscription
	opts webpush.Options
	send func(ctx context.Context, payload []byte, s *webpush.Subscription, o *webpush.Options) (*http.Response, error)
}

// pushTimeout upper bound of one push service request
const pushTimeout = 30 * time.Second

// NewWebPushDisplayer build from config; VAPID keys and subscription are required
func NewWebPushDisplayer(c config.WebPushConfig) (*WebPushDisplayer, error) {
	if c.VAPIDPublicKey == "" || c.VAPIDPrivateKey == "" {
		return nil, fmt.Errorf("webpush: VAPID keys not configured")
	}
	if c.Endpoint == "" {
		return nil, fmt.Errorf("webpush: subscription endpoint not configured")
	}

	return &WebPushDisplayer{
		sub: &webpush.Subscription{
			Endpoint: c.Endpoint,
			Keys:     webpush.Keys{P256dh: c.P256dh, Auth: c.Auth},
		},
		opts: webpush.Options{
			Subscriber:      c.Subscriber,
			VAPIDPublicKey:  c.VAPIDPublicKey,
			VAPIDPrivateKey: c.VAPIDPrivateKey,
			TTL:             int(c.TTL / time.Second),
			HTTPClient:      &http.Client{Timeout: pushTimeout},
		},
		send: webpush.SendNotificationWithContext,
	}, nil
}

// Show push the notification
func (d *WebPushDisplayer) Show(ctx context.Context, n domain.DisplayedNotification) error {
	payload, err := json.Marshal(pushPayload{
		Title: n.Title,
		Body:  n.Options.Body,
		Icon:  n.Options.Icon,
		URL:   n.Options.Data.URL,
		Tag:   n.ID,
	})
	if err != nil {
		return err
	}

	resp, err := d.send(ctx, payload, d.sub, &d.opts)
	if err != nil {
		return fmt.Errorf("webpush send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webpush status %d: %s", resp.StatusCode, string(b))
	}
	logger.Log.Debug("webpush delivered", zap.String("tag", n.ID), zap.Int("status", resp.StatusCode))
	return nil
}

// Close pushed notifications are closed by the receiving browser
func (d *WebPushDisplayer) Close(ctx context.Context, id string) error {
	return nil
}
