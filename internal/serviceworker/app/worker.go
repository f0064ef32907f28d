package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"chat_notifier/internal/serviceworker/domain"
	errprocess "chat_notifier/pkg/err"
	"chat_notifier/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Port is the page side handle of a worker, the equivalent of postMessage.
type Port interface {
	PostMessage(ctx context.Context, msg domain.Message) error
}

// Displayer shows and closes OS level notifications
type Displayer interface {
	Show(ctx context.Context, n domain.DisplayedNotification) error
	Close(ctx context.Context, id string) error
}

// Clients window clients visible to the worker
type Clients interface {
	MatchAll(ctx context.Context) ([]domain.WindowClient, error)
	Focus(ctx context.Context, id string) error
	OpenWindow(ctx context.Context, url string) error
}

type event struct {
	msg   *domain.Message
	click *domain.DisplayedNotification
	reply chan domain.Reply
}

// Worker 獨立執行的 service worker, 以 FIFO inbox 與 page 溝通
type Worker struct {
	id        string
	scriptURL string
	displayer Displayer
	clients   Clients
	log       *logger.LogInfo

	// claim is set by the container, called on activate
	claim func(w *Worker)

	mu          sync.Mutex
	state       domain.State
	skipWaiting bool
	displayed   map[string]domain.DisplayedNotification

	inbox    chan event
	stopped  chan struct{}
	stopOnce sync.Once
}

// NewWorker create a parsed worker, Run must be started before messages are handled
func NewWorker(scriptURL string, displayer Displayer, clients Clients, inboxSize int) *Worker {
	if inboxSize <= 0 {
		inboxSize = 64
	}
	id := uuid.New().String()
	return &Worker{
		id:        id,
		scriptURL: scriptURL,
		displayer: displayer,
		clients:   clients,
		log:       logger.Log.With(zap.String("worker", id)),
		state:     domain.StateParsed,
		displayed: map[string]domain.DisplayedNotification{},
		inbox:     make(chan event, inboxSize),
		stopped:   make(chan struct{}),
	}
}

// ID worker id
func (w *Worker) ID() string { return w.id }

// ScriptURL script the worker was registered from
func (w *Worker) ScriptURL() string { return w.scriptURL }

// State current lifecycle state
func (w *Worker) State() domain.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s domain.State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
}

// SkipWaiting activate as soon as installed instead of waiting for older instances
func (w *Worker) SkipWaiting() {
	w.mu.Lock()
	w.skipWaiting = true
	w.mu.Unlock()
}

// SkippedWaiting whether SkipWaiting was called
func (w *Worker) SkippedWaiting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.skipWaiting
}

// Install install handler
func (w *Worker) Install(ctx context.Context) error {
	if s := w.State(); s != domain.StateParsed {
		return fmt.Errorf("install from state %s", s)
	}
	w.setState(domain.StateInstalling)
	w.log.Info("[SW] Installed")
	w.SkipWaiting()
	w.setState(domain.StateInstalled)
	return nil
}

// Activate activate handler, claims every open client
func (w *Worker) Activate(ctx context.Context) error {
	if s := w.State(); s != domain.StateInstalled {
		return fmt.Errorf("activate from state %s", s)
	}
	w.setState(domain.StateActivating)
	w.log.Info("[SW] Activated")
	if w.claim != nil {
		w.claim(w)
	}
	w.setState(domain.StateActivated)
	return nil
}

// Run handle inbox events in order until ctx is done or the worker is stopped
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.stopped:
			return
		case ev := <-w.inbox:
			switch {
			case ev.msg != nil:
				reply := w.handleMessage(ctx, *ev.msg)
				if ev.reply != nil {
					ev.reply <- reply
				}
			case ev.click != nil:
				w.handleClick(ctx, *ev.click)
			}
		}
	}
}

// Stop mark redundant, pending events are dropped
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.setState(domain.StateRedundant)
		close(w.stopped)
	})
}

// PostMessage fire-and-forget, no acknowledgment. Blocks only while the inbox is full.
func (w *Worker) PostMessage(ctx context.Context, msg domain.Message) error {
	return w.enqueue(ctx, event{msg: &msg})
}

// Request post msg and wait for the worker's Reply
func (w *Worker) Request(ctx context.Context, msg domain.Message) (domain.Reply, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	reply := make(chan domain.Reply, 1)
	if err := w.enqueue(ctx, event{msg: &msg, reply: reply}); err != nil {
		return domain.Reply{}, err
	}
	select {
	case r := <-reply:
		return r, nil
	case <-w.stopped:
		return domain.Reply{}, errprocess.ErrWorkerStopped
	case <-ctx.Done():
		return domain.Reply{}, ctx.Err()
	}
}

// DispatchClick deliver a notificationclick for a displayed notification
func (w *Worker) DispatchClick(id string) error {
	w.mu.Lock()
	n, ok := w.displayed[id]
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("notification %s not displayed", id)
	}
	return w.enqueue(context.Background(), event{click: &n})
}

// Displayed notifications currently on screen, oldest first
func (w *Worker) Displayed() []domain.DisplayedNotification {
	w.mu.Lock()
	out := make([]domain.DisplayedNotification, 0, len(w.displayed))
	for _, n := range w.displayed {
		out = append(out, n)
	}
	w.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].ShownAt.Before(out[j].ShownAt) })
	return out
}

func (w *Worker) enqueue(ctx context.Context, ev event) error {
	select {
	case <-w.stopped:
		return errprocess.ErrWorkerStopped
	default:
	}
	select {
	case w.inbox <- ev:
		return nil
	case <-w.stopped:
		return errprocess.ErrWorkerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg domain.Message) domain.Reply {
	w.log.Debug("[SW] Message received", zap.String("type", string(msg.Type)), zap.String("title", msg.Title))

	reply := domain.Reply{ID: msg.ID}
	if msg.Type != domain.ShowNotification {
		reply.Error = "unsupported message type " + string(msg.Type)
		return reply
	}

	title := msg.Title
	if title == "" {
		title = "Notification"
	}
	n := domain.DisplayedNotification{
		ID:      uuid.New().String(),
		Title:   title,
		Options: msg.Options,
		ShownAt: time.Now(),
	}

	if err := w.show(ctx, n); err != nil {
		w.log.Error("[SW] Error showing notification", zap.String("title", title), zap.Error(err))
		reply.Error = err.Error()
		return reply
	}

	w.mu.Lock()
	w.displayed[n.ID] = n
	w.mu.Unlock()
	w.log.Info("[SW] showNotification() called", zap.String("title", title), zap.String("url", n.Options.Data.URL))
	reply.OK = true
	return reply
}

// show never lets a displayer failure, panic included, escape the worker
func (w *Worker) show(ctx context.Context, n domain.DisplayedNotification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("displayer panic: %v", r)
		}
	}()
	return w.displayer.Show(ctx, n)
}

func (w *Worker) handleClick(ctx context.Context, n domain.DisplayedNotification) {
	if err := w.displayer.Close(ctx, n.ID); err != nil {
		w.log.Warn("[SW] close notification failed", zap.Error(err))
	}
	w.mu.Lock()
	delete(w.displayed, n.ID)
	w.mu.Unlock()

	url := n.Options.Data.URL
	if url == "" || w.clients == nil {
		return
	}

	windows, err := w.clients.MatchAll(ctx)
	if err != nil {
		w.log.Error("[SW] matchAll failed", zap.Error(err))
		return
	}
	// 第一個符合的 client 優先, 不看最近 focus
	for _, c := range windows {
		if strings.Contains(c.URL, url) {
			if err := w.clients.Focus(ctx, c.ID); err != nil {
				w.log.Error("[SW] focus failed", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}
	}

	if err := w.clients.OpenWindow(ctx, url); err != nil {
		w.log.Error("[SW] openWindow failed", zap.String("url", url), zap.Error(err))
	}
}
