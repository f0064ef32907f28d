package app

import (
	"context"
	"time"

	ndomain "chat_notifier/internal/notification/domain"
	"chat_notifier/internal/notifyserver/domain"
	"chat_notifier/internal/notifyserver/repository"
	"chat_notifier/pkg"
	errprocess "chat_notifier/pkg/err"
	"chat_notifier/pkg/logger"

	"go.uber.org/zap"
)

// NotifyUseCase unseen list bookkeeping and fan-out to notification sockets
type NotifyUseCase struct {
	unseen        repository.UnseenRepository
	pub           repository.Publisher
	previewLength int
	now           func() time.Time
}

// NewNotifyUseCase previewLength <= 0 keeps whole messages
func NewNotifyUseCase(unseen repository.UnseenRepository, pub repository.Publisher, previewLength int) *NotifyUseCase {
	return &NotifyUseCase{
		unseen:        unseen,
		pub:           pub,
		previewLength: previewLength,
		now:           time.Now,
	}
}

// Push record a notification for userID and publish the unseen list, then the notification itself
func (uc *NotifyUseCase) Push(ctx context.Context, userID int, sender, message string) (ndomain.Notification, error) {
	if sender == "" {
		return ndomain.Notification{}, errprocess.Set("notification sender is required")
	}

	n := ndomain.Notification{
		SenderUsername: sender,
		MessagePreview: pkg.Truncate(message, uc.previewLength),
		Timestamp:      uc.now().UTC().Format(time.RFC3339),
	}

	list, err := uc.unseen.Append(ctx, userID, n)
	if err != nil {
		return n, err
	}

	channel := domain.Channel(userID)
	if err := uc.pub.Publish(ctx, channel, ndomain.NewUnseenFrame(list)); err != nil {
		return n, err
	}
	if err := uc.pub.Publish(ctx, channel, ndomain.SingleFrame{Notification: n}); err != nil {
		return n, err
	}
	logger.Log.Info("notification pushed", zap.Int("user_id", userID), zap.String("sender", sender), zap.Int("unseen", len(list)))
	return n, nil
}

// MarkSeen clear the unseen list and publish the empty list
func (uc *NotifyUseCase) MarkSeen(ctx context.Context, userID int) error {
	if err := uc.unseen.Clear(ctx, userID); err != nil {
		return err
	}
	return uc.pub.Publish(ctx, domain.Channel(userID), ndomain.NewUnseenFrame(nil))
}

// Unseen current unseen frame, sent when a socket connects
func (uc *NotifyUseCase) Unseen(ctx context.Context, userID int) (ndomain.UnseenFrame, error) {
	list, err := uc.unseen.List(ctx, userID)
	if err != nil {
		return ndomain.UnseenFrame{}, err
	}
	return ndomain.NewUnseenFrame(list), nil
}
