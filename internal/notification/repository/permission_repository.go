package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chat_notifier/internal/notification/domain"
	"chat_notifier/pkg/database"

	"github.com/go-redis/redis/v8"
)

// MemoryPermissionStore permission lives as long as the process
type MemoryPermissionStore struct {
	mu sync.RWMutex
	p  domain.Permission
}

// NewMemoryPermissionStore start from initial
func NewMemoryPermissionStore(initial domain.Permission) *MemoryPermissionStore {
	if initial == "" {
		initial = domain.PermissionDefault
	}
	return &MemoryPermissionStore{p: initial}
}

// Load current permission
func (m *MemoryPermissionStore) Load(ctx context.Context) (domain.Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.p, nil
}

// Save remember permission
func (m *MemoryPermissionStore) Save(ctx context.Context, p domain.Permission) error {
	m.mu.Lock()
	m.p = p
	m.mu.Unlock()
	return nil
}

// RedisPermissionStore permission shared by every notifier of one user
type RedisPermissionStore struct {
	repo     database.RedisRepository[domain.Permission]
	key      string
	fallback domain.Permission
}

// PermissionKey redis key of a user's permission
func PermissionKey(userID int) string {
	return fmt.Sprintf("notification:permission:%d", userID)
}

// NewRedisPermissionStore fallback is returned while nothing was saved yet
func NewRedisPermissionStore(client *redis.Client, userID int, fallback domain.Permission) *RedisPermissionStore {
	if fallback == "" {
		fallback = domain.PermissionDefault
	}
	return &RedisPermissionStore{
		repo:     database.NewRedisRepository[domain.Permission](client),
		key:      PermissionKey(userID),
		fallback: fallback,
	}
}

// Load current permission
func (r *RedisPermissionStore) Load(ctx context.Context) (domain.Permission, error) {
	p, err := r.repo.Get(ctx, r.key)
	if errors.Is(err, database.ErrNotFound) {
		return r.fallback, nil
	} else if err != nil {
		return "", fmt.Errorf("failed to get permission: %w", err)
	}
	return domain.ParsePermission(string(p))
}

// Save remember permission, no expiry
func (r *RedisPermissionStore) Save(ctx context.Context, p domain.Permission) error {
	return r.repo.Set(ctx, r.key, p, 0)
}
