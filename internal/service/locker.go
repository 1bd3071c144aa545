package service

import (
	"context"
	"time"

	"github.com/gonghojin/prompt-center-sub001/internal/pkg/redis"
	"github.com/google/uuid"
)

// Locker 跨实例互斥，token 用于只释放自己持有的锁
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration, retries int) (token string, ok bool, err error)
	Unlock(ctx context.Context, key, token string)
}

type redisLocker struct{}

func NewRedisLocker() Locker {
	return redisLocker{}
}

func (redisLocker) TryLock(ctx context.Context, key string, ttl time.Duration, retries int) (string, bool, error) {
	token := uuid.NewString()
	ok, err := redis.TryLock(ctx, key, token, ttl, retries)
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (redisLocker) Unlock(ctx context.Context, key, token string) {
	redis.UnLock(ctx, key, token)
}
