package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"chat_notifier/internal/notification/domain"
	"chat_notifier/internal/notification/view"
	errprocess "chat_notifier/pkg/err"
	"chat_notifier/pkg/logger"
	"chat_notifier/pkg/wsconn"

	"go.uber.org/zap"
)

// ErrSessionClosed session not started or already closed
var ErrSessionClosed = errors.New("notification session closed")

// Gate per notification permission decision
type Gate interface {
	Allow(ctx context.Context) (bool, error)
}

// Forwarder hands a notification to the service worker
type Forwarder interface {
	Forward(ctx context.Context, n domain.Notification) error
}

// MarkSeener POST /mark-notifications-seen/
type MarkSeener interface {
	MarkSeen(ctx context.Context) (domain.MarkSeenResponse, error)
}

// Renderer draws badge and dropdown
type Renderer interface {
	Render(v view.View) error
}

// SessionConfig what a session needs to reach its notification channel
type SessionConfig struct {
	BaseURL   string
	UserID    int
	AuthToken string
	// ReconnectInterval 0 表示不重連
	ReconnectInterval time.Duration
	Location          *time.Location
}

// Session one notifier page lifetime: socket, unseen state and the display
// pipeline. State is only touched on the event loop goroutine.
type Session struct {
	cfg      SessionConfig
	gate     Gate
	relay    Forwarder
	marker   MarkSeener
	renderer Renderer
	now      func() time.Time

	conn *wsconn.Conn

	events  chan func()
	stopped chan struct{}
	state   domain.UnseenState

	running   atomic.Bool
	lifeMu    sync.Mutex
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	startOnce sync.Once
	closeOnce sync.Once
	displays  sync.WaitGroup
}

// NewSession wire a session, nothing runs until Start
func NewSession(cfg SessionConfig, gate Gate, relay Forwarder, marker MarkSeener, renderer Renderer) *Session {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if renderer == nil {
		renderer = view.NopRenderer{}
	}
	return &Session{
		cfg:      cfg,
		gate:     gate,
		relay:    relay,
		marker:   marker,
		renderer: renderer,
		now:      time.Now,
		events:   make(chan func(), 64),
		stopped:  make(chan struct{}),
		state:    domain.Empty(),
	}
}

// SocketURL ws(s)://<host>/ws/notification/<userId>/
func (s *Session) SocketURL() (string, error) {
	var q url.Values
	if s.cfg.AuthToken != "" {
		q = url.Values{"auth": {s.cfg.AuthToken}}
	}
	return wsconn.SocketURL(s.cfg.BaseURL, fmt.Sprintf("/ws/notification/%d/", s.cfg.UserID), q)
}

// Start page load: render the empty state, start the event loop and open the socket
func (s *Session) Start(ctx context.Context) error {
	u, err := s.SocketURL()
	if err != nil {
		return err
	}

	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	started := false
	s.startOnce.Do(func() {
		started = true
		s.startLoop(ctx)
		s.conn = wsconn.New(wsconn.Options{
			URL:               u,
			Name:              "notification",
			ReconnectInterval: s.cfg.ReconnectInterval,
			ShouldReconnect:   func() bool { return s.ctx.Err() == nil },
		}, wsconn.Handler{
			OnOpen: func(*wsconn.Conn) {
				logger.Log.Info("Notification socket connected", zap.Int("user_id", s.cfg.UserID))
			},
			OnMessage: s.Deliver,
			OnClose: func(err error) {
				logger.Log.Info("Notification socket disconnected", zap.Int("user_id", s.cfg.UserID))
			},
			OnError: func(err error) {
				logger.Log.Error("Notification socket error", zap.Error(err))
			},
		})
		go func() {
			if err := s.conn.Run(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.Debug("notification socket ended", zap.Error(err))
			}
		}()
	})
	if !started {
		return fmt.Errorf("session already started")
	}
	return nil
}

func (s *Session) startLoop(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)
	go s.loop()
	s.post(s.render)
}

func (s *Session) loop() {
	defer close(s.stopped)
	for {
		select {
		case <-s.ctx.Done():
			return
		case fn := <-s.events:
			fn()
		}
	}
}

// post schedule fn on the event loop, dropped once the session is closed
func (s *Session) post(fn func()) bool {
	select {
	case <-s.stopped:
		return false
	default:
	}
	select {
	case s.events <- fn:
		return true
	case <-s.stopped:
		return false
	}
}

// call run fn on the event loop and wait for it
func (s *Session) call(fn func()) bool {
	if !s.running.Load() {
		return false
	}
	done := make(chan struct{})
	if !s.post(func() { fn(); close(done) }) {
		return false
	}
	select {
	case <-done:
		return true
	case <-s.stopped:
		return false
	}
}

// Deliver one raw socket frame
func (s *Session) Deliver(raw []byte) {
	frame := append([]byte(nil), raw...)
	s.post(func() { s.handleFrame(frame) })
}

func (s *Session) handleFrame(raw []byte) {
	var f domain.Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		logger.Log.Error("Malformed notification frame", zap.Error(err), zap.ByteString("frame", raw))
		return
	}

	if f.Notification != nil {
		s.display(*f.Notification)
	}

	if f.HasUnseen() {
		st, err := f.Unseen()
		if err != nil {
			logger.Log.Error("Malformed unseen notifications", zap.Error(err))
			return
		}
		s.state = st
		s.render()
	}
}

// display 每則通知各自一條 goroutine, 等待提示或 worker 不會卡住 event loop
func (s *Session) display(n domain.Notification) {
	if n.SenderUsername == "" {
		logger.Log.Error("Dropping notification", zap.Error(errprocess.ErrInvalidNotification))
		return
	}

	s.displays.Add(1)
	go func() {
		defer s.displays.Done()
		ok, err := s.gate.Allow(s.ctx)
		if err != nil {
			if !errors.Is(err, errprocess.ErrPermissionUnsupported) {
				logger.Log.Error("notification permission request failed", zap.Error(err))
			}
			return
		}
		if !ok {
			return
		}
		if err := s.relay.Forward(s.ctx, n); err != nil && !errors.Is(err, errprocess.ErrNoActiveWorker) {
			logger.Log.Error("relay notification failed", zap.String("sender", n.SenderUsername), zap.Error(err))
		}
	}()
}

func (s *Session) render() {
	v := view.Build(s.state.Clone(), s.now(), s.cfg.Location)
	if err := s.renderer.Render(v); err != nil {
		logger.Log.Error("render notifications failed", zap.Error(err))
	}
}

// MarkAllAsRead POST mark-as-seen when anything is unseen; only {success:true}
// clears the local state. Failures are logged and leave the state as it was.
func (s *Session) MarkAllAsRead(ctx context.Context) error {
	var count int
	if !s.call(func() { count = s.state.Count }) {
		return ErrSessionClosed
	}
	if count <= 0 {
		return nil
	}

	resp, err := s.marker.MarkSeen(ctx)
	if err != nil {
		logger.Log.Error("Error marking notifications as seen", zap.Error(err))
		return err
	}
	if !resp.Success {
		logger.Log.Error("Error marking notifications as seen", zap.Error(errprocess.ErrMarkSeenRejected))
		return errprocess.ErrMarkSeenRejected
	}

	s.call(func() {
		s.state = domain.Empty()
		s.render()
	})
	return nil
}

// Snapshot copy of the current unseen state, ordered after every event posted before it
func (s *Session) Snapshot() domain.UnseenState {
	var out domain.UnseenState
	if s.call(func() { out = s.state.Clone() }) {
		return out
	}
	return s.state.Clone()
}

// Close page unload: stop the socket and the loop, cancel pending display paths
func (s *Session) Close() {
	s.lifeMu.Lock()
	s.closed = true
	s.lifeMu.Unlock()

	s.closeOnce.Do(func() {
		if !s.running.Load() {
			return
		}
		if s.conn != nil {
			if err := s.conn.Close(); err != nil {
				logger.Log.Debug("close notification socket", zap.Error(err))
			}
		}
		s.cancel()
		<-s.stopped
		s.displays.Wait()
	})
}
