// Package wsconn is a callback-style WebSocket client: one persistent socket
// with open, message, close and error hooks and an optional fixed-interval
// reconnect.
package wsconn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"chat_notifier/pkg/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected Send called while no socket is open
var ErrNotConnected = errors.New("websocket not connected")

// Handler socket callbacks, any of them may be nil
type Handler struct {
	OnOpen    func(c *Conn)
	OnMessage func(data []byte)
	OnClose   func(err error)
	OnError   func(err error)
}

// Options dial setting
type Options struct {
	URL    string
	Header http.Header
	// ReconnectInterval 0 表示不重連
	ReconnectInterval time.Duration
	// ShouldReconnect is consulted before every reconnect attempt when set.
	ShouldReconnect func() bool
	Dialer          *websocket.Dialer
	// Name only used in log lines
	Name string
}

// Conn one logical socket, possibly re-dialed
type Conn struct {
	opts Options
	h    Handler
	log  *logger.LogInfo

	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool

	writeMu sync.Mutex
}

// New create Conn, nothing is dialed until Run
func New(opts Options, h Handler) *Conn {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.Name == "" {
		opts.Name = "websocket"
	}
	return &Conn{
		opts: opts,
		h:    h,
		log:  logger.Log.With(zap.String("socket", opts.Name)),
	}
}

// Run dials and reads frames until ctx is done, Close is called, or the
// socket drops and reconnection is off. It returns the error that ended the
// last connection, or nil after Close.
func (c *Conn) Run(ctx context.Context) error {
	for {
		err := c.runOnce(ctx)
		if c.isClosed() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.opts.ReconnectInterval <= 0 {
			return err
		}
		if c.opts.ShouldReconnect != nil && !c.opts.ShouldReconnect() {
			return err
		}

		c.log.Info("reconnect scheduled", zap.Duration("after", c.opts.ReconnectInterval))
		timer := time.NewTimer(c.opts.ReconnectInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if c.isClosed() {
			return nil
		}
	}
}

func (c *Conn) runOnce(ctx context.Context) error {
	ws, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
	if err != nil {
		c.fireError(err)
		c.fireClose(err)
		return fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ws.Close()
		return nil
	}
	c.ws = ws
	c.mu.Unlock()

	// ctx 結束時關閉 socket 讓 ReadMessage 返回
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			ws.Close()
		case <-stop:
		}
	}()

	if c.h.OnOpen != nil {
		c.h.OnOpen(c)
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.ws = nil
			c.mu.Unlock()
			ws.Close()

			expected := websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
			if !expected && !c.isClosed() && ctx.Err() == nil {
				c.fireError(err)
			}
			c.fireClose(err)
			return err
		}
		if c.h.OnMessage != nil {
			c.h.OnMessage(data)
		}
	}
}

// Send marshal v to JSON and write it as one text frame
func (c *Conn) Send(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return ws.WriteMessage(websocket.TextMessage, b)
}

// Connected reports whether a socket is currently open
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws != nil
}

// Close stop reading and disable reconnect, a normal close frame is sent first
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	ws := c.ws
	c.mu.Unlock()

	if ws == nil {
		return nil
	}

	c.writeMu.Lock()
	err := ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		c.log.Debug("close frame not sent", zap.Error(err))
	}
	return ws.Close()
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) fireError(err error) {
	if c.h.OnError != nil {
		c.h.OnError(err)
	}
}

func (c *Conn) fireClose(err error) {
	if c.h.OnClose != nil {
		c.h.OnClose(err)
	}
}

// SocketURL turns an http(s) base URL and a path into a ws(s) URL.
// query may be nil.
func SocketURL(baseURL, path string, query url.Values) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws", "":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String(), nil
}
