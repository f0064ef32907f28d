package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	ndomain "chat_notifier/internal/notification/domain"
	"chat_notifier/internal/notifyserver/domain"
	"chat_notifier/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// UnseenRepository unseen notifications per user, oldest first
type UnseenRepository interface {
	Append(ctx context.Context, userID int, n ndomain.Notification) ([]ndomain.Notification, error)
	List(ctx context.Context, userID int) ([]ndomain.Notification, error)
	Clear(ctx context.Context, userID int) error
}

type redisUnseenRepository struct {
	client *redis.Client
}

// NewRedisUnseenRepository one redis list per user
func NewRedisUnseenRepository(client *redis.Client) UnseenRepository {
	return &redisUnseenRepository{client: client}
}

func (r *redisUnseenRepository) Append(ctx context.Context, userID int, n ndomain.Notification) ([]ndomain.Notification, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := r.client.RPush(ctx, domain.UnseenKey(userID), data).Err(); err != nil {
		return nil, fmt.Errorf("failed to append unseen: %w", err)
	}
	return r.List(ctx, userID)
}

func (r *redisUnseenRepository) List(ctx context.Context, userID int) ([]ndomain.Notification, error) {
	vals, err := r.client.LRange(ctx, domain.UnseenKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list unseen: %w", err)
	}

	out := make([]ndomain.Notification, 0, len(vals))
	for _, v := range vals {
		var n ndomain.Notification
		if err := json.Unmarshal([]byte(v), &n); err != nil {
			logger.Log.Error("skip broken unseen entry", zap.Int("user_id", userID), zap.Error(err))
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *redisUnseenRepository) Clear(ctx context.Context, userID int) error {
	return r.client.Del(ctx, domain.UnseenKey(userID)).Err()
}

type memoryUnseenRepository struct {
	mu    sync.Mutex
	lists map[int][]ndomain.Notification
}

// NewMemoryUnseenRepository process local store for runs without redis
func NewMemoryUnseenRepository() UnseenRepository {
	return &memoryUnseenRepository{lists: map[int][]ndomain.Notification{}}
}

func (m *memoryUnseenRepository) Append(ctx context.Context, userID int, n ndomain.Notification) ([]ndomain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[userID] = append(m.lists[userID], n)
	return append([]ndomain.Notification(nil), m.lists[userID]...), nil
}

func (m *memoryUnseenRepository) List(ctx context.Context, userID int) ([]ndomain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ndomain.Notification, len(m.lists[userID]))
	copy(out, m.lists[userID])
	return out, nil
}

func (m *memoryUnseenRepository) Clear(ctx context.Context, userID int) error {
	m.mu.Lock()
	delete(m.lists, userID)
	m.mu.Unlock()
	return nil
}
