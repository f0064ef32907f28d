package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chat_notifier/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ErrNotFound key does not exist
var ErrNotFound = errors.New("redis.Nil")

// RedisRepository JSON values by key
type RedisRepository[T any] interface {
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Get(ctx context.Context, key string) (T, error)
	Del(ctx context.Context, key string) error
}

// redisRepository 实现 RedisRepository
type redisRepository[T any] struct {
	client *redis.Client
}

// NewRedisClient connect to a single redis, ping is retried per conn
func NewRedisClient(ctx context.Context, conn Connection, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: conn.ConnectStr,
		DB:   db, // Redis 数据库编号
	})

	var err error
	for i := 0; i <= conn.RetryCount; i++ {
		if err = rdb.Ping(ctx).Err(); err == nil {
			return rdb, nil
		}
		logger.Log.Warn("redis not ready", zap.String("addr", conn.ConnectStr), zap.Int("attempt", i+1), zap.Error(err))
		if i < conn.RetryCount {
			select {
			case <-ctx.Done():
				rdb.Close()
				return nil, ctx.Err()
			case <-time.After(conn.RetryInterval):
			}
		}
	}
	rdb.Close()
	return nil, fmt.Errorf("failed to connect to redis %s: %w", conn.ConnectStr, err)
}

// NewRedisRepository JSON repository on an existing client
func NewRedisRepository[T any](client *redis.Client) RedisRepository[T] {
	return &redisRepository[T]{client: client}
}

func (r *redisRepository[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisRepository[T]) Get(ctx context.Context, key string) (T, error) {
	var zeroValue T // 用于返回空值
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return zeroValue, ErrNotFound
	} else if err != nil {
		return zeroValue, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var result T
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		logger.Log.Error("redis value decode failed", zap.String("key", key), zap.Error(err))
		return zeroValue, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return result, nil
}

func (r *redisRepository[T]) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
