package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"chat_notifier/internal/chat/domain"
	"chat_notifier/pkg/logger"
	"chat_notifier/pkg/wsconn"

	"go.uber.org/zap"
)

// GroupReconnectInterval wait before re-dialing a dropped group socket
const GroupReconnectInterval = 3 * time.Second

// GroupChat socket of the group currently open; it reconnects while active
type GroupChat struct {
	me      Identity
	groupID int
	active  atomic.Bool
	conn    *wsconn.Conn
}

// NewGroupChat socket to /ws/group/<group_id>/. interval 0 uses GroupReconnectInterval.
func NewGroupChat(me Identity, groupID int, interval time.Duration, onMessage func(domain.GroupMessage)) (*GroupChat, error) {
	u, err := me.socketURL(fmt.Sprintf("/ws/group/%d/", groupID))
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = GroupReconnectInterval
	}

	g := &GroupChat{me: me, groupID: groupID}
	g.active.Store(true)
	g.conn = wsconn.New(wsconn.Options{
		URL:               u,
		Name:              fmt.Sprintf("group:%d", groupID),
		ReconnectInterval: interval,
		ShouldReconnect:   g.active.Load,
	}, wsconn.Handler{
		OnOpen: func(*wsconn.Conn) {
			logger.Log.Info("Group chat connection established", zap.Int("group", groupID))
		},
		OnMessage: func(data []byte) {
			var m domain.GroupMessage
			if err := json.Unmarshal(data, &m); err != nil {
				logger.Log.Error("Malformed group frame", zap.Int("group", groupID), zap.Error(err))
				return
			}
			if onMessage != nil {
				onMessage(m)
			}
		},
		OnClose: func(error) {
			logger.Log.Info("Group chat connection closed", zap.Int("group", groupID))
		},
		OnError: func(err error) {
			logger.Log.Error("Group chat error occurred", zap.Int("group", groupID), zap.Error(err))
		},
	})
	return g, nil
}

// GroupID group of this socket
func (g *GroupChat) GroupID() int { return g.groupID }

// Active whether this group is still the open chat
func (g *GroupChat) Active() bool { return g.active.Load() }

// Run read and reconnect until Leave or ctx ends
func (g *GroupChat) Run(ctx context.Context) error { return g.conn.Run(ctx) }

// Send trimmed text, only while the socket is open
func (g *GroupChat) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return g.conn.Send(domain.GroupRequest{Message: text, Sender: strconv.Itoa(g.me.UserID)})
}

// Leave another chat was opened, stop reconnecting and close
func (g *GroupChat) Leave() error {
	g.active.Store(false)
	return g.conn.Close()
}
