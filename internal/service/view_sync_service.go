package service

import (
	"context"
	"fmt"
	log "log/slog"
	"sync/atomic"
	"time"

	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/consts"
	"github.com/gonghojin/prompt-center-sub001/internal/repository"
)

const (
	syncLockTTL        = 10 * time.Minute
	forceSyncLockRetry = 5
)

// SyncReport 一次对账的结果
type SyncReport struct {
	Scanned         int           `json:"scanned"`
	Flushed         int           `json:"flushed"`
	Failed          int           `json:"failed"`
	Raised          int           `json:"raised"`
	FailedPromptIDs []uint64      `json:"failed_prompt_ids,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// ConsistencyReport 日志条数与计数的全量核对结果
type ConsistencyReport struct {
	Checked  int `json:"checked"`
	Drifted  int `json:"drifted"`
	Repaired int `json:"repaired"`
}

type ViewSyncService interface {
	FlushRequester
	// Reconcile 把缓存增量合并进持久化计数，并补齐只写了日志的浏览
	Reconcile(ctx context.Context) (*SyncReport, error)
	// ForceSync 立即对账单个 prompt
	ForceSync(ctx context.Context, promptID uint64) (*ViewCount, error)
	// ValidateConsistency 核对日志条数与 持久化计数+缓存增量，偏差超过阈值时告警，计数偏少且无增量时修复
	ValidateConsistency(ctx context.Context) (*ConsistencyReport, error)
	FlushRequests() <-chan string
}

type viewSyncServiceImpl struct {
	cfg        config.ViewConfig
	keys       ViewKeyStrategy
	cache      repository.ViewCacheRepo
	logRepo    repository.ViewLogRepo
	countRepo  repository.ViewCountRepo
	promptRepo repository.PromptRepo
	locker     Locker
	guard      *cacheGuard
	now        func() time.Time
	running    atomic.Bool
	flushCh    chan string
}

func NewViewSyncService(
	cfg config.ViewConfig,
	keys ViewKeyStrategy,
	cache repository.ViewCacheRepo,
	logRepo repository.ViewLogRepo,
	countRepo repository.ViewCountRepo,
	promptRepo repository.PromptRepo,
	locker Locker,
) ViewSyncService {
	cfg = cfg.WithDefaults()
	return &viewSyncServiceImpl{
		cfg:        cfg,
		keys:       keys,
		cache:      cache,
		logRepo:    logRepo,
		countRepo:  countRepo,
		promptRepo: promptRepo,
		locker:     locker,
		guard:      newCacheGuard(cfg.CacheTimeout, cfg.CacheFailureThreshold, cfg.CacheHealthInterval, cache.Ping),
		now:        time.Now,
		flushCh:    make(chan string, 1),
	}
}

func (s *viewSyncServiceImpl) RequestFlush(reason string) {
	select {
	case s.flushCh <- reason:
	default:
	}
}

func (s *viewSyncServiceImpl) FlushRequests() <-chan string {
	return s.flushCh
}

func (s *viewSyncServiceImpl) Reconcile(ctx context.Context) (*SyncReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}
	defer s.running.Store(false)

	start := s.now()
	report := &SyncReport{FailedPromptIDs: make([]uint64, 0)}

	token, ok, err := s.locker.TryLock(ctx, consts.ViewSyncLock, syncLockTTL, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire sync lock: %w", ErrCacheUnavailable, err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer s.locker.Unlock(context.WithoutCancel(ctx), consts.ViewSyncLock, token)

	live, err := s.flushDeltas(ctx, report)
	if err != nil {
		report.Duration = s.now().Sub(start)
		return report, fmt.Errorf("%w: %w", ErrReconcileFailed, err)
	}
	if err = s.sweepLogOnly(ctx, live, report); err != nil {
		log.WarnContext(ctx, "sweep log-only views failed", "err", err)
	}

	report.Duration = s.now().Sub(start)
	log.InfoContext(ctx, "view reconcile finished",
		"scanned", report.Scanned, "flushed", report.Flushed, "failed", report.Failed,
		"raised", report.Raised, "duration", report.Duration)
	return report, nil
}

// flushDeltas 逐个 prompt 合并增量，返回缓存中仍有 key 的 prompt
func (s *viewSyncServiceImpl) flushDeltas(ctx context.Context, report *SyncReport) (map[uint64]struct{}, error) {
	var keys []string
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		keys, err = s.cache.ScanKeys(ctx, s.keys.CountCacheKeyPattern(), 0)
		return err
	})
	if err != nil {
		return nil, err
	}

	live := make(map[uint64]struct{}, len(keys))
	for _, key := range keys {
		if ctx.Err() != nil {
			return live, ctx.Err()
		}
		promptID, err := s.keys.ExtractPromptID(key)
		if err != nil {
			log.WarnContext(ctx, "skip malformed view count key", "key", key, "err", err)
			continue
		}
		report.Scanned++
		live[promptID] = struct{}{}

		flushed, err := s.flushOne(ctx, promptID)
		if err != nil {
			report.Failed++
			report.FailedPromptIDs = append(report.FailedPromptIDs, promptID)
			log.ErrorContext(ctx, "flush view count failed", "prompt_id", promptID, "err", err)
			continue
		}
		if flushed {
			report.Flushed++
		}
	}
	return live, nil
}

// flushOne 持久化计数 = max(持久化计数 + 增量, 日志条数)；写库失败时缓存保持不变，下一轮重试
func (s *viewSyncServiceImpl) flushOne(ctx context.Context, promptID uint64) (bool, error) {
	key := s.keys.CountCacheKey(promptID)
	var (
		delta  int64
		exists bool
	)
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		delta, exists, err = s.cache.GetCount(ctx, key)
		return err
	})
	if err != nil {
		return false, err
	}
	if !exists || delta <= 0 {
		return false, nil
	}

	logCount, err := s.logRepo.CountByPrompt(ctx, promptID)
	if err != nil {
		return false, err
	}
	if _, err = s.countRepo.MergeDelta(ctx, promptID, delta, logCount); err != nil {
		return false, err
	}

	err = s.guard.do(ctx, func(ctx context.Context) error {
		_, err := s.cache.RebaseCount(ctx, key, delta)
		return err
	})
	if err != nil {
		// 已写库但未扣减，下一轮会重复合并，偏向多计
		log.ErrorContext(ctx, "rebase view count failed after merge", "prompt_id", promptID, "delta", delta, "err", err)
	}
	return true, nil
}

// sweepLogOnly 缓存不可用期间只写了日志的浏览，在回看窗口内按日志条数抬升计数
func (s *viewSyncServiceImpl) sweepLogOnly(ctx context.Context, live map[uint64]struct{}, report *SyncReport) error {
	since := s.now().Add(-s.cfg.SweepLookback)
	recent, err := s.logRepo.FindRecentPromptIDs(ctx, since, s.cfg.BatchSize)
	if err != nil {
		return err
	}
	candidates := make([]uint64, 0, len(recent))
	for _, id := range recent {
		if _, ok := live[id]; !ok {
			candidates = append(candidates, id)
		}
	}
	rows, err := s.logRepo.FindUnderCounted(ctx, candidates)
	if err != nil {
		return err
	}

	for _, row := range rows {
		raised, err := s.raiseIfNoDelta(ctx, row.PromptID, row.LogCount)
		if err != nil {
			return err
		}
		if raised {
			report.Raised++
			log.InfoContext(ctx, "raised view count to log count", "prompt_id", row.PromptID,
				"from", row.DurableCount, "to", row.LogCount)
		}
	}
	return nil
}

// raiseIfNoDelta 抬升前再确认一次缓存里没有新增量，有增量的交给下一轮合并
func (s *viewSyncServiceImpl) raiseIfNoDelta(ctx context.Context, promptID uint64, floor int64) (bool, error) {
	var (
		delta  int64
		exists bool
	)
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		delta, exists, err = s.cache.GetCount(ctx, s.keys.CountCacheKey(promptID))
		return err
	})
	if err != nil {
		return false, err
	}
	if exists && delta > 0 {
		return false, nil
	}
	return s.countRepo.RaiseViewCount(ctx, promptID, floor)
}

func (s *viewSyncServiceImpl) ForceSync(ctx context.Context, promptID uint64) (*ViewCount, error) {
	if promptID == 0 {
		return nil, fmt.Errorf("%w: prompt id is required", ErrParamInvalid)
	}
	exists, err := s.promptRepo.ExistsPrompt(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReconcileFailed, err)
	}
	if !exists {
		return nil, ErrPromptNotFound
	}

	token, ok, err := s.locker.TryLock(ctx, consts.ViewSyncLock, syncLockTTL, forceSyncLockRetry)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire sync lock: %w", ErrCacheUnavailable, err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer s.locker.Unlock(context.WithoutCancel(ctx), consts.ViewSyncLock, token)

	flushed, err := s.flushOne(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReconcileFailed, err)
	}
	if !flushed {
		logCount, err := s.logRepo.CountByPrompt(ctx, promptID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReconcileFailed, err)
		}
		if _, err = s.raiseIfNoDelta(ctx, promptID, logCount); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReconcileFailed, err)
		}
	}

	m, err := s.countRepo.LoadViewCount(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReconcileFailed, err)
	}
	count := viewCountFromModel(promptID, m)
	log.InfoContext(ctx, "force synced view count", "prompt_id", promptID, "total", count.TotalViewCount)
	return &count, nil
}

func (s *viewSyncServiceImpl) ValidateConsistency(ctx context.Context) (*ConsistencyReport, error) {
	token, ok, err := s.locker.TryLock(ctx, consts.ViewConsistencyLock, syncLockTTL, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: acquire consistency lock: %w", ErrCacheUnavailable, err)
	}
	if !ok {
		return nil, ErrSyncInProgress
	}
	defer s.locker.Unlock(context.WithoutCancel(ctx), consts.ViewConsistencyLock, token)

	report := &ConsistencyReport{}
	var afterID uint64
	for {
		rows, err := s.logRepo.ListLogCounts(ctx, afterID, s.cfg.BatchSize)
		if err != nil {
			return report, fmt.Errorf("%w: %w", ErrReconcileFailed, err)
		}
		for _, row := range rows {
			if err = s.checkOne(ctx, row, report); err != nil {
				return report, err
			}
			afterID = row.PromptID
		}
		if len(rows) < s.cfg.BatchSize {
			break
		}
	}

	log.InfoContext(ctx, "view consistency check finished",
		"checked", report.Checked, "drifted", report.Drifted, "repaired", report.Repaired)
	return report, nil
}

func (s *viewSyncServiceImpl) checkOne(ctx context.Context, row *repository.PromptLogCount, report *ConsistencyReport) error {
	report.Checked++
	var delta int64
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		delta, _, err = s.cache.GetCount(ctx, s.keys.CountCacheKey(row.PromptID))
		return err
	})
	if err != nil {
		return err
	}

	drift := row.LogCount - (row.DurableCount + delta)
	if abs(drift) > s.cfg.ConsistencyThreshold {
		report.Drifted++
		log.WarnContext(ctx, "view count drift detected", "prompt_id", row.PromptID,
			"log_count", row.LogCount, "durable", row.DurableCount, "delta", delta, "drift", drift)
	}
	if drift > 0 && delta == 0 {
		raised, err := s.countRepo.RaiseViewCount(ctx, row.PromptID, row.LogCount)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrReconcileFailed, err)
		}
		if raised {
			report.Repaired++
		}
	}
	return nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
