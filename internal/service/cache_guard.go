package service

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// cacheGuard 给每次缓存调用加超时，并在连续失败后进入降级模式。
// 降级期间直接返回 ErrCacheUnavailable，按 healthInterval 惰性探活，探活成功后恢复。
type cacheGuard struct {
	timeout        time.Duration
	threshold      int
	healthInterval time.Duration
	ping           func(ctx context.Context) error
	now            func() time.Time

	degraded  atomic.Bool
	failures  atomic.Int64
	mu        sync.Mutex
	lastProbe time.Time
}

func newCacheGuard(timeout time.Duration, threshold int, healthInterval time.Duration, ping func(ctx context.Context) error) *cacheGuard {
	if threshold <= 0 {
		threshold = 1
	}
	return &cacheGuard{
		timeout:        timeout,
		threshold:      threshold,
		healthInterval: healthInterval,
		ping:           ping,
		now:            time.Now,
	}
}

func (g *cacheGuard) do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g.degraded.Load() && !g.probe(ctx) {
		return fmt.Errorf("%w: degraded", ErrCacheUnavailable)
	}

	opCtx, cancel := g.withTimeout(ctx)
	defer cancel()
	if err := fn(opCtx); err != nil {
		g.markFailure(err)
		return fmt.Errorf("%w: %w", ErrCacheUnavailable, err)
	}
	g.failures.Store(0)
	return nil
}

func (g *cacheGuard) Degraded() bool {
	return g.degraded.Load()
}

func (g *cacheGuard) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func (g *cacheGuard) markFailure(err error) {
	n := g.failures.Add(1)
	if n >= int64(g.threshold) && g.degraded.CompareAndSwap(false, true) {
		g.mu.Lock()
		g.lastProbe = g.now()
		g.mu.Unlock()
		log.Warn("view cache degraded, switching to log-only mode", "failures", n, "err", err)
	}
}

// probe 同一时间只有一个调用方真正去 Ping
func (g *cacheGuard) probe(ctx context.Context) bool {
	g.mu.Lock()
	if g.now().Sub(g.lastProbe) < g.healthInterval {
		g.mu.Unlock()
		return false
	}
	g.lastProbe = g.now()
	g.mu.Unlock()

	pingCtx, cancel := g.withTimeout(ctx)
	defer cancel()
	if err := g.ping(pingCtx); err != nil {
		log.Debug("view cache still unavailable", "err", err)
		return false
	}
	g.failures.Store(0)
	g.degraded.Store(false)
	log.Info("view cache recovered")
	return true
}
