package app

import (
	"context"
	"fmt"

	"chat_notifier/internal/notification/domain"
	swapp "chat_notifier/internal/serviceworker/app"
	swdomain "chat_notifier/internal/serviceworker/domain"
	errprocess "chat_notifier/pkg/err"
	"chat_notifier/pkg/logger"

	"go.uber.org/zap"
)

// DefaultIcon icon sent with every notification
const DefaultIcon = "/static/assets/icon.png"

// WorkerContainer page side view of the service worker container
type WorkerContainer interface {
	Controller() swapp.Port
	Ready(ctx context.Context) (*swapp.Registration, error)
}

// Relay forwards notifications to the service worker
type Relay struct {
	container WorkerContainer
	icon      string
}

// NewRelay icon "" uses DefaultIcon
func NewRelay(container WorkerContainer, icon string) *Relay {
	if icon == "" {
		icon = DefaultIcon
	}
	return &Relay{container: container, icon: icon}
}

// BuildMessage SHOW_NOTIFICATION message for n
func BuildMessage(n domain.Notification, icon string) swdomain.Message {
	body := n.MessagePreview
	if body == "" {
		body = "You have a new message"
	}
	return swdomain.Message{
		Type:  swdomain.ShowNotification,
		Title: fmt.Sprintf("%s sent you a message", n.SenderUsername),
		Options: swdomain.NotificationOptions{
			Body: body,
			Icon: icon,
			Data: swdomain.NotificationData{URL: n.DeepLink()},
		},
	}
}

// Forward post to the controlling worker, or to the active worker once the
// registration is ready. Nothing is queued or retried.
func (r *Relay) Forward(ctx context.Context, n domain.Notification) error {
	msg := BuildMessage(n, r.icon)

	if ctrl := r.container.Controller(); ctrl != nil {
		logger.Log.Debug("Sending notification to service worker", zap.String("sender", n.SenderUsername))
		return ctrl.PostMessage(ctx, msg)
	}

	reg, err := r.container.Ready(ctx)
	if err != nil {
		return fmt.Errorf("wait service worker ready: %w", err)
	}
	var port swapp.Port
	if reg != nil {
		port = reg.Active()
	}
	if port == nil {
		logger.Log.Warn("No active service worker", zap.String("sender", n.SenderUsername))
		return errprocess.ErrNoActiveWorker
	}
	logger.Log.Debug("Sending notification to ready service worker", zap.String("sender", n.SenderUsername))
	return port.PostMessage(ctx, msg)
}
