package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"chat_notifier/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Publisher publish one JSON message on a channel
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Subscriber deliver raw payloads of a channel until ctx is done or the
// returned unsubscribe is called. handler is never called after unsubscribe returns.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (unsubscribe func(), err error)
}

// PubSub both sides
type PubSub interface {
	Publisher
	Subscriber
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish 將 message 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe 訂閱 channel, 確認訂閱成功後才返回, 收到訊息後呼叫 handler
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (func(), error) {
	sub := r.client.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				// select 可能同時拿到訊息與取消, 取消優先
				if subCtx.Err() != nil {
					return
				}
				handler([]byte(m.Payload))
			case <-subCtx.Done():
				logger.Log.Info("sub close", zap.String("channel", channel))
				return
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}

// MemoryPubSub in-process pub/sub for runs without redis
type MemoryPubSub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]*memorySub
}

// NewMemoryPubSub empty bus
func NewMemoryPubSub() *MemoryPubSub {
	return &MemoryPubSub{subs: map[string]map[int]*memorySub{}}
}

// Publish deliver synchronously to every current subscriber
func (m *MemoryPubSub) Publish(ctx context.Context, channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	m.mu.RLock()
	subs := make([]*memorySub, 0, len(m.subs[channel]))
	for _, sub := range m.subs[channel] {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	for _, sub := range subs {
		sub.deliver(data)
	}
	return nil
}

// Subscribe handler stays registered until ctx is done or unsubscribe is called
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	if m.subs[channel] == nil {
		m.subs[channel] = map[int]*memorySub{}
	}
	sub := &memorySub{handler: handler}
	m.subs[channel][id] = sub
	m.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[channel], id)
			if len(m.subs[channel]) == 0 {
				delete(m.subs, channel)
			}
			m.mu.Unlock()
			// 等進行中的 handler 結束, 之後的 publish 只會看到 removed
			sub.mu.Lock()
			sub.removed = true
			sub.mu.Unlock()
		})
	}

	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return unsubscribe, nil
}

type memorySub struct {
	mu      sync.Mutex
	removed bool
	handler func([]byte)
}

func (s *memorySub) deliver(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removed {
		return
	}
	s.handler(payload)
}
