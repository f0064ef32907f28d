package app

import (
	"context"
	"encoding/json"
	"sync"

	"chat_notifier/internal/chat/domain"
	"chat_notifier/pkg/logger"
	"chat_notifier/pkg/wsconn"

	"go.uber.org/zap"
)

// Presence online status socket on /ws/online/
type Presence struct {
	me   Identity
	conn *wsconn.Conn

	mu     sync.RWMutex
	status map[string]bool
}

// NewPresence onChange may be nil, it runs on the socket's read goroutine
func NewPresence(me Identity, onChange func(domain.PresenceUpdate)) (*Presence, error) {
	u, err := me.socketURL("/ws/online/")
	if err != nil {
		return nil, err
	}

	p := &Presence{me: me, status: map[string]bool{}}
	p.conn = wsconn.New(wsconn.Options{URL: u, Name: "online"}, wsconn.Handler{
		OnOpen: func(c *wsconn.Conn) {
			logger.Log.Info("Online status socket connected")
			if err := c.Send(domain.PresenceRequest{Username: me.Username, Type: domain.PresenceOpen}); err != nil {
				logger.Log.Error("send online status failed", zap.Error(err))
			}
		},
		OnMessage: func(data []byte) {
			var up domain.PresenceUpdate
			if err := json.Unmarshal(data, &up); err != nil {
				logger.Log.Error("Malformed presence frame", zap.Error(err))
				return
			}
			p.mu.Lock()
			p.status[up.Username] = up.OnlineStatus
			p.mu.Unlock()
			if onChange != nil {
				onChange(up)
			}
		},
		OnClose: func(error) {
			logger.Log.Info("Online status socket disconnected")
		},
	})
	return p, nil
}

// Run read until closed
func (p *Presence) Run(ctx context.Context) error { return p.conn.Run(ctx) }

// Online last known status; known is false when nothing was heard about username
func (p *Presence) Online(username string) (online, known bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	online, known = p.status[username]
	return online, known
}

// Label "Online" or "Offline"
func (p *Presence) Label(username string) string {
	if online, _ := p.Online(username); online {
		return "Online"
	}
	return "Offline"
}

// Leave announce we are going away, then close
func (p *Presence) Leave() error {
	if err := p.conn.Send(domain.PresenceRequest{Username: p.me.Username, Type: domain.PresenceClose}); err != nil {
		logger.Log.Warn("send offline status failed", zap.Error(err))
	}
	return p.conn.Close()
}
