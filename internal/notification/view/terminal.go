package view

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("160")).
			Padding(0, 1)
	dropdownStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("250")).
			Padding(0, 1).
			Width(40)
	senderStyle  = lipgloss.NewStyle().Bold(true)
	timeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	previewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	buttonStyle  = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("33")).
			Padding(0, 1)
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
)

// TerminalRenderer draws the bell, badge and dropdown to a terminal
type TerminalRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewTerminalRenderer render to out
func NewTerminalRenderer(out io.Writer) *TerminalRenderer {
	return &TerminalRenderer{out: out}
}

// Render draw one view
func (r *TerminalRenderer) Render(v View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := fmt.Fprintln(r.out, RenderTerminal(v))
	return err
}

// RenderTerminal string form of the terminal view
func RenderTerminal(v View) string {
	bell := "🔔"
	if v.BadgeVisible {
		bell += " " + badgeStyle.Render(v.BadgeText)
	}

	var rows []string
	if len(v.Items) == 0 {
		rows = append(rows, emptyStyle.Render(v.EmptyText))
	}
	for i, it := range v.Items {
		if i > 0 {
			rows = append(rows, "")
		}
		rows = append(rows, senderStyle.Render(it.Sender)+" messaged you")
		rows = append(rows, timeStyle.Render(it.Time))
		if it.Preview != "" {
			rows = append(rows, previewStyle.Render(it.Preview))
		}
	}
	if v.ShowMarkAll {
		rows = append(rows, "", buttonStyle.Render(MarkAllText))
	}

	return lipgloss.JoinVertical(lipgloss.Left, bell, dropdownStyle.Render(strings.Join(rows, "\n")))
}
