package app

import (
	"context"
	"sync"
	"time"

	"chat_notifier/internal/notifyserver/domain"
	"chat_notifier/internal/notifyserver/repository"
	"chat_notifier/pkg/logger"
	"chat_notifier/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// PingInterval server ping period on notification sockets
var PingInterval = 10 * time.Minute

// NotificationWebsocketHandler /ws/notification/:userId/ sockets
type NotificationWebsocketHandler struct {
	uc  *NotifyUseCase
	sub repository.Subscriber
}

// NewNotificationWebsocketHandler create NotificationWebsocketHandler
func NewNotificationWebsocketHandler(uc *NotifyUseCase, sub repository.Subscriber) *NotificationWebsocketHandler {
	return &NotificationWebsocketHandler{uc: uc, sub: sub}
}

// HandleConnection subscribe to the user's channel, send the current unseen list, then read until the client leaves
func (h *NotificationWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, _ := conn.Locals(middlewares.TokenUserID).(int)
	log := logger.Log.With(zap.Int("user_id", userID))
	log.Info("notification socket open")

	ticker := time.NewTicker(PingInterval)
	ctxClose, cancel := context.WithCancel(ctx)
	var (
		writeMu     sync.Mutex
		closed      bool
		unsubscribe func()
	)

	defer func() {
		ticker.Stop()
		cancel()
		if unsubscribe != nil {
			unsubscribe()
		}
		// conn 釋放後會被 fiber 重用, 之後任何遲到的 write 都不能再碰它
		writeMu.Lock()
		closed = true
		conn.Close()
		writeMu.Unlock()
		log.Info("notification socket close")
	}()

	write := func(payload []byte) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if closed {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Warn("notification write failed", zap.Error(err))
		}
	}

	unsubscribe, err := h.sub.Subscribe(ctxClose, domain.Channel(userID), write)
	if err != nil {
		log.Error("subscribe failed", zap.Error(err))
		return
	}

	// 持有 writeMu 直到初始清單寫出, 之後 publish 的 frame 一定排在後面
	writeMu.Lock()
	initial, err := h.uc.Unseen(ctxClose, userID)
	if err == nil {
		err = conn.WriteJSON(initial)
	}
	writeMu.Unlock()
	if err != nil {
		log.Error("send unseen notifications failed", zap.Error(err))
		return
	}

	conn.SetPongHandler(func(appData string) error {
		log.Debug("Received PONG", zap.String("data", appData))
		return nil
	})

	go func() {
		for {
			select {
			case <-ticker.C:
				writeMu.Lock()
				if closed {
					writeMu.Unlock()
					return
				}
				err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(time.Second))
				writeMu.Unlock()
				if err != nil {
					log.Warn("Ping error", zap.Error(err))
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		// client 不會送資料, 讀取只為了偵測斷線
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				log.Info("Connection closed", zap.Error(err))
			} else {
				log.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}
