package app

import (
	"context"

	ndomain "chat_notifier/internal/notification/domain"

	"github.com/stretchr/testify/mock"
)

// MockUnseenRepository Mock UnseenRepository
type MockUnseenRepository struct {
	mock.Mock
}

// Append mock append unseen notification
func (m *MockUnseenRepository) Append(ctx context.Context, userID int, n ndomain.Notification) ([]ndomain.Notification, error) {
	args := m.Called(ctx, userID, n)
	if args.Get(0) != nil {
		return args.Get(0).([]ndomain.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

// List mock list unseen notifications
func (m *MockUnseenRepository) List(ctx context.Context, userID int) ([]ndomain.Notification, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).([]ndomain.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

// Clear mock clear unseen notifications
func (m *MockUnseenRepository) Clear(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockPublisher Mock Publisher
type MockPublisher struct {
	mock.Mock
}

// Publish mock publish
func (m *MockPublisher) Publish(ctx context.Context, channel string, message interface{}) error {
	args := m.Called(ctx, channel, message)
	return args.Error(0)
}
