package app

import (
	"context"

	"chat_notifier/internal/serviceworker/domain"

	"github.com/stretchr/testify/mock"
)

// MockDisplayer Mock Displayer
type MockDisplayer struct {
	mock.Mock
}

// Show mock show notification
func (m *MockDisplayer) Show(ctx context.Context, n domain.DisplayedNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// Close mock close notification
func (m *MockDisplayer) Close(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockClients Mock Clients
type MockClients struct {
	mock.Mock
}

// MatchAll mock match all window clients
func (m *MockClients) MatchAll(ctx context.Context) ([]domain.WindowClient, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.WindowClient), args.Error(1)
	}
	return nil, args.Error(1)
}

// Focus mock focus window
func (m *MockClients) Focus(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// OpenWindow mock open window
func (m *MockClients) OpenWindow(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}
