package repository

import (
	"context"
	"fmt"
	"io"
	"sync"

	"chat_notifier/internal/serviceworker/domain"

	"github.com/charmbracelet/lipgloss"
)

var (
	toastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("33")).
			Padding(0, 1).
			Width(48)
	toastTitle = lipgloss.NewStyle().Bold(true)
	toastMuted = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// ConsoleDisplayer prints notifications as boxed toasts on a terminal
type ConsoleDisplayer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleDisplayer write toasts to out
func NewConsoleDisplayer(out io.Writer) *ConsoleDisplayer {
	return &ConsoleDisplayer{out: out}
}

// Show print one toast
func (d *ConsoleDisplayer) Show(ctx context.Context, n domain.DisplayedNotification) error {
	body := toastTitle.Render(n.Title)
	if n.Options.Body != "" {
		body += "\n" + n.Options.Body
	}
	if n.Options.Data.URL != "" {
		body += "\n" + toastMuted.Render(n.Options.Data.URL)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := fmt.Fprintln(d.out, toastStyle.Render(body))
	return err
}

// Close toasts scroll away, nothing to close
func (d *ConsoleDisplayer) Close(ctx context.Context, id string) error {
	return nil
}
