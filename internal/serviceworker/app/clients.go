package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"chat_notifier/internal/serviceworker/domain"

	"github.com/google/uuid"
)

// ErrOpenWindowUnsupported no opener configured
var ErrOpenWindowUnsupported = errors.New("opening windows is not supported")

// Opener opens an absolute URL in a new window
type Opener func(ctx context.Context, url string) error

// WindowClients in-memory list of windows, in the order they were opened
type WindowClients struct {
	baseURL string
	open    Opener

	mu      sync.Mutex
	windows []domain.WindowClient
}

// NewWindowClients open may be nil, then OpenWindow is unsupported
func NewWindowClients(baseURL string, open Opener) *WindowClients {
	return &WindowClients{
		baseURL: strings.TrimRight(baseURL, "/"),
		open:    open,
	}
}

// Add track a window already showing path
func (w *WindowClients) Add(path string) domain.WindowClient {
	c := domain.WindowClient{ID: uuid.New().String(), URL: w.baseURL + path}
	w.mu.Lock()
	w.windows = append(w.windows, c)
	w.mu.Unlock()
	return c
}

// Remove forget a window
func (w *WindowClients) Remove(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, c := range w.windows {
		if c.ID == id {
			w.windows = append(w.windows[:i], w.windows[i+1:]...)
			return
		}
	}
}

// MatchAll every window client
func (w *WindowClients) MatchAll(ctx context.Context) ([]domain.WindowClient, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.WindowClient, len(w.windows))
	copy(out, w.windows)
	return out, nil
}

// Focus focus one window, every other window loses focus
func (w *WindowClients) Focus(ctx context.Context, id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	found := false
	for i := range w.windows {
		w.windows[i].Focused = w.windows[i].ID == id
		found = found || w.windows[i].Focused
	}
	if !found {
		return fmt.Errorf("window %s not found", id)
	}
	return nil
}

// OpenWindow open path in a new focused window
func (w *WindowClients) OpenWindow(ctx context.Context, path string) error {
	if w.open == nil {
		return ErrOpenWindowUnsupported
	}
	if err := w.open(ctx, w.baseURL+path); err != nil {
		return err
	}
	c := w.Add(path)
	return w.Focus(ctx, c.ID)
}
