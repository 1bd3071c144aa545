package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// rebaseScript 扣减已刷盘的增量，减到 0 及以下时删除 key
var rebaseScript = redis.NewScript(`
local v = redis.call('DECRBY', KEYS[1], ARGV[1])
if v <= 0 then
	redis.call('DEL', KEYS[1])
end
return v
`)

// ViewCacheRepo 浏览量的快速缓存层：去重标记与未刷盘的计数增量
type ViewCacheRepo interface {
	Exists(ctx context.Context, key string) (bool, error)
	// SetIfAbsent 抢占去重标记，已存在时返回 false
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IncrementCount 增量自增并刷新 TTL，返回自增后的值
	IncrementCount(ctx context.Context, key string, by int64, ttl time.Duration) (int64, error)
	// GetCount key 不存在时 ok 为 false
	GetCount(ctx context.Context, key string) (count int64, ok bool, err error)
	// RebaseCount 扣减已刷盘的部分，期间新增的增量保留
	RebaseCount(ctx context.Context, key string, by int64) (int64, error)
	// ScanKeys 按 pattern 遍历，最多返回 limit 个
	ScanKeys(ctx context.Context, pattern string, limit int) ([]string, error)
	Ping(ctx context.Context) error
}

type viewCacheRepoImpl struct {
	rdb redis.Cmdable
}

func NewViewCacheRepo(rdb redis.Cmdable) ViewCacheRepo {
	return &viewCacheRepoImpl{rdb: rdb}
}

func (r *viewCacheRepoImpl) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, errors.Wrapf(err, "exists %s", key)
	}
	return n > 0, nil
}

func (r *viewCacheRepoImpl) SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.rdb.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, errors.Wrapf(err, "setnx %s", key)
	}
	return ok, nil
}

func (r *viewCacheRepoImpl) IncrementCount(ctx context.Context, key string, by int64, ttl time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.IncrBy(ctx, key, by)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, errors.Wrapf(err, "incrby %s", key)
	}
	return incr.Val(), nil
}

func (r *viewCacheRepoImpl) GetCount(ctx context.Context, key string) (int64, bool, error) {
	count, err := r.rdb.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, errors.Wrapf(err, "get %s", key)
	}
	return count, true, nil
}

func (r *viewCacheRepoImpl) RebaseCount(ctx context.Context, key string, by int64) (int64, error) {
	v, err := rebaseScript.Run(ctx, r.rdb, []string{key}, by).Int64()
	if err != nil {
		return 0, errors.Wrapf(err, "rebase %s", key)
	}
	return v, nil
}

func (r *viewCacheRepoImpl) ScanKeys(ctx context.Context, pattern string, limit int) ([]string, error) {
	seen := make(map[string]struct{})
	keys := make([]string, 0)
	var cursor uint64
	for {
		batch, next, err := r.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "scan %s", pattern)
		}
		for _, k := range batch {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
			if limit > 0 && len(keys) >= limit {
				return keys, nil
			}
		}
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (r *viewCacheRepoImpl) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
