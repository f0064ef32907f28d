package app

import (
	"context"

	"chat_notifier/internal/notification/domain"
	"chat_notifier/internal/notification/view"
	swdomain "chat_notifier/internal/serviceworker/domain"

	"github.com/stretchr/testify/mock"
)

// MockPermissionStore Mock PermissionStore
type MockPermissionStore struct {
	mock.Mock
}

// Load mock load permission
func (m *MockPermissionStore) Load(ctx context.Context) (domain.Permission, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Permission), args.Error(1)
}

// Save mock save permission
func (m *MockPermissionStore) Save(ctx context.Context, p domain.Permission) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

// MockPrompter Mock Prompter
type MockPrompter struct {
	mock.Mock
}

// RequestPermission mock permission prompt
func (m *MockPrompter) RequestPermission(ctx context.Context) (domain.Permission, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Permission), args.Error(1)
}

// MockGate Mock Gate
type MockGate struct {
	mock.Mock
}

// Allow mock permission decision
func (m *MockGate) Allow(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

// MockForwarder Mock Forwarder
type MockForwarder struct {
	mock.Mock
}

// Forward mock relay
func (m *MockForwarder) Forward(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockMarkSeener Mock MarkSeener
type MockMarkSeener struct {
	mock.Mock
}

// MarkSeen mock mark-as-seen round trip
func (m *MockMarkSeener) MarkSeen(ctx context.Context) (domain.MarkSeenResponse, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.MarkSeenResponse), args.Error(1)
}

// MockRenderer Mock Renderer
type MockRenderer struct {
	mock.Mock
}

// Render mock render
func (m *MockRenderer) Render(v view.View) error {
	args := m.Called(v)
	return args.Error(0)
}

// MockPort Mock service worker port
type MockPort struct {
	mock.Mock
}

// PostMessage mock postMessage
func (m *MockPort) PostMessage(ctx context.Context, msg swdomain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
