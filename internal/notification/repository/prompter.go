package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"chat_notifier/internal/notification/domain"

	"github.com/charmbracelet/huh"
)

// StaticPrompter answers every permission request the same way
type StaticPrompter struct {
	Answer domain.Permission
}

// RequestPermission fixed answer
func (p StaticPrompter) RequestPermission(ctx context.Context) (domain.Permission, error) {
	if err := ctx.Err(); err != nil {
		return domain.PermissionDefault, err
	}
	return p.Answer, nil
}

// TerminalPrompter asks on the terminal with a confirm form
type TerminalPrompter struct {
	Title string
}

// RequestPermission Allow grants, Block denies, an aborted form leaves the permission at default
func (p TerminalPrompter) RequestPermission(ctx context.Context) (domain.Permission, error) {
	title := p.Title
	if title == "" {
		title = "Show desktop notifications for new chat messages?"
	}

	var allow bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Allow").
				Negative("Block").
				Value(&allow),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return domain.PermissionDefault, nil
		}
		return domain.PermissionDefault, err
	}
	if allow {
		return domain.PermissionGranted, nil
	}
	return domain.PermissionDenied, nil
}

// LinePrompter asks on out and takes its answer from the caller's own line reader,
// so a process that already scans stdin for commands stays the only stdin reader
type LinePrompter struct {
	Title   string
	out     io.Writer
	answers chan string
	pending atomic.Bool
}

// NewLinePrompter prompt text goes to out, answers come in through Answer
func NewLinePrompter(out io.Writer) *LinePrompter {
	return &LinePrompter{out: out, answers: make(chan string, 1)}
}

// Pending a question is waiting for Answer
func (p *LinePrompter) Pending() bool {
	return p.pending.Load()
}

// Answer hand one input line to a pending question, false when nothing is asking
func (p *LinePrompter) Answer(line string) bool {
	if !p.pending.Load() {
		return false
	}
	select {
	case p.answers <- line:
		return true
	default:
		return false
	}
}

// RequestPermission allow grants, block denies, dismiss leaves the permission at default
func (p *LinePrompter) RequestPermission(ctx context.Context) (domain.Permission, error) {
	if err := ctx.Err(); err != nil {
		return domain.PermissionDefault, err
	}
	title := p.Title
	if title == "" {
		title = "Show desktop notifications for new chat messages?"
	}

	// 上一輪遲到的回答不算數
	select {
	case <-p.answers:
	default:
	}
	p.pending.Store(true)
	defer p.pending.Store(false)

	fmt.Fprintf(p.out, "%s [allow/block/dismiss] ", title)
	for {
		select {
		case <-ctx.Done():
			return domain.PermissionDefault, ctx.Err()
		case line := <-p.answers:
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "allow", "a", "yes", "y":
				return domain.PermissionGranted, nil
			case "block", "b", "no", "n":
				return domain.PermissionDenied, nil
			case "dismiss", "d":
				return domain.PermissionDefault, nil
			}
			fmt.Fprint(p.out, "answer allow, block or dismiss: ")
		}
	}
}

// PermissionPrompter what NewPrompter builds
type PermissionPrompter interface {
	RequestPermission(ctx context.Context) (domain.Permission, error)
}

// NewPrompter build the prompter named in config: interactive | form | grant | deny
// form takes over the terminal while it asks, so its host must not read stdin itself
func NewPrompter(mode string, out io.Writer) (PermissionPrompter, error) {
	switch mode {
	case "", "interactive":
		return NewLinePrompter(out), nil
	case "form":
		return TerminalPrompter{}, nil
	case "grant":
		return StaticPrompter{Answer: domain.PermissionGranted}, nil
	case "deny":
		return StaticPrompter{Answer: domain.PermissionDenied}, nil
	}
	return nil, fmt.Errorf("unknown prompt mode %q", mode)
}
