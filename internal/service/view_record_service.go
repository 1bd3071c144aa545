package service

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/redis"
	"github.com/gonghojin/prompt-center-sub001/internal/repository"
)

type RecordOutcome string

const (
	// OutcomeCounted 写入日志并计数
	OutcomeCounted RecordOutcome = "COUNTED"
	// OutcomeDuplicate 去重窗口内的重复浏览
	OutcomeDuplicate RecordOutcome = "DUPLICATE"
	// OutcomeLogOnly 缓存不可用，只写了日志，由对账补齐计数
	OutcomeLogOnly RecordOutcome = "LOG_ONLY"
)

type RecordViewCommand struct {
	PromptID    uint64
	UserID      uint64
	AnonymousID string
	IPAddress   string
	// EventID 上游事件 id，重复投递时写日志幂等
	EventID  string
	ViewedAt time.Time
}

type RecordResult struct {
	Outcome    RecordOutcome
	RecordID   string
	Identifier ViewIdentifier
}

// FlushRequester 缓存内存吃紧时请求提前刷盘
type FlushRequester interface {
	RequestFlush(reason string)
}

type ViewRecordService interface {
	// Record 同步执行完整的记录流程
	Record(ctx context.Context, cmd RecordViewCommand) (*RecordResult, error)
	// RecordViewAsync 同步校验参数与 prompt，之后的流程在后台执行，不受调用方 ctx 取消影响
	RecordViewAsync(ctx context.Context, cmd RecordViewCommand) error
	// GetViewCount 持久化总数加缓存增量，缓存不可用时只返回持久化总数
	GetViewCount(ctx context.Context, promptID uint64) (*ViewCount, error)
	// Wait 等待后台记录任务结束
	Wait()
}

type viewRecordServiceImpl struct {
	cfg        config.ViewConfig
	keys       ViewKeyStrategy
	cache      repository.ViewCacheRepo
	logRepo    repository.ViewLogRepo
	countRepo  repository.ViewCountRepo
	promptRepo repository.PromptRepo
	flusher    FlushRequester
	guard      *cacheGuard
	now        func() time.Time
	wg         sync.WaitGroup
}

func NewViewRecordService(
	cfg config.ViewConfig,
	keys ViewKeyStrategy,
	cache repository.ViewCacheRepo,
	logRepo repository.ViewLogRepo,
	countRepo repository.ViewCountRepo,
	promptRepo repository.PromptRepo,
	flusher FlushRequester,
) ViewRecordService {
	cfg = cfg.WithDefaults()
	return &viewRecordServiceImpl{
		cfg:        cfg,
		keys:       keys,
		cache:      cache,
		logRepo:    logRepo,
		countRepo:  countRepo,
		promptRepo: promptRepo,
		flusher:    flusher,
		guard:      newCacheGuard(cfg.CacheTimeout, cfg.CacheFailureThreshold, cfg.CacheHealthInterval, cache.Ping),
		now:        time.Now,
	}
}

func (s *viewRecordServiceImpl) Record(ctx context.Context, cmd RecordViewCommand) (*RecordResult, error) {
	identifier, err := s.resolve(cmd)
	if err != nil {
		return nil, err
	}
	if err = s.checkPrompt(ctx, cmd.PromptID); err != nil {
		return nil, err
	}
	return s.record(ctx, identifier, cmd)
}

func (s *viewRecordServiceImpl) RecordViewAsync(ctx context.Context, cmd RecordViewCommand) error {
	identifier, err := s.resolve(cmd)
	if err != nil {
		return err
	}
	if err = s.checkPrompt(ctx, cmd.PromptID); err != nil {
		return err
	}

	bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RecordTimeout)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		if _, err := s.record(bgCtx, identifier, cmd); err != nil {
			log.ErrorContext(bgCtx, "record view failed", "prompt_id", cmd.PromptID, "viewer", identifier.Label(), "err", err)
		}
	}()
	return nil
}

func (s *viewRecordServiceImpl) Wait() {
	s.wg.Wait()
}

func (s *viewRecordServiceImpl) resolve(cmd RecordViewCommand) (ViewIdentifier, error) {
	if cmd.PromptID == 0 {
		return ViewIdentifier{}, fmt.Errorf("%w: prompt id is required", ErrParamInvalid)
	}
	viewer, err := ResolveViewerIdentity(cmd.UserID, cmd.AnonymousID, cmd.IPAddress)
	if err != nil {
		return ViewIdentifier{}, err
	}
	return ViewIdentifier{PromptID: cmd.PromptID, Viewer: viewer}, nil
}

// checkPrompt 查询失败时只记日志，浏览照常记录
func (s *viewRecordServiceImpl) checkPrompt(ctx context.Context, promptID uint64) error {
	exists, err := s.promptRepo.ExistsPrompt(ctx, promptID)
	if err != nil {
		log.WarnContext(ctx, "check prompt existence failed, recording anyway", "prompt_id", promptID, "err", err)
		return nil
	}
	if !exists {
		return ErrPromptNotFound
	}
	return nil
}

func (s *viewRecordServiceImpl) record(ctx context.Context, identifier ViewIdentifier, cmd RecordViewCommand) (*RecordResult, error) {
	dedupKey := s.keys.DuplicationKey(identifier)
	logOnly := false

	duplicate, err := s.isDuplicate(ctx, dedupKey)
	if err != nil {
		logOnly = true
		log.WarnContext(ctx, "view dedup check skipped", "viewer", identifier.Label(), "prompt_id", identifier.PromptID, "err", err)
	} else if duplicate {
		return &RecordResult{Outcome: OutcomeDuplicate, Identifier: identifier}, nil
	}

	viewedAt := cmd.ViewedAt
	if viewedAt.IsZero() {
		viewedAt = s.now()
	}
	record := NewViewRecord(cmd.EventID, identifier, viewedAt)
	appendErr := s.appendLog(ctx, record)

	result := &RecordResult{Outcome: OutcomeCounted, RecordID: record.ID, Identifier: identifier}
	if logOnly {
		result.Outcome = OutcomeLogOnly
	} else if err = s.incrementCounter(ctx, identifier.PromptID); err != nil {
		result.Outcome = OutcomeLogOnly
		log.WarnContext(ctx, "view counter increment failed", "prompt_id", identifier.PromptID, "err", err)
	}

	if appendErr != nil {
		return result, fmt.Errorf("%w: %w", ErrDurableWriteFailed, appendErr)
	}
	return result, nil
}

// isDuplicate 先查后占，SETNX 抢占失败同样视为重复
func (s *viewRecordServiceImpl) isDuplicate(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		exists, err = s.cache.Exists(ctx, key)
		return err
	})
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	var acquired bool
	err = s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		acquired, err = s.cache.SetIfAbsent(ctx, key, s.keys.DuplicationWindow())
		return err
	})
	if err != nil {
		return false, err
	}
	return !acquired, nil
}

func (s *viewRecordServiceImpl) appendLog(ctx context.Context, record ViewRecord) error {
	m := record.toModel()
	return retry.Do(
		func() error {
			return s.logRepo.SaveViewLog(ctx, m)
		},
		retry.Context(ctx),
		retry.Attempts(s.cfg.LogRetryAttempts),
		retry.Delay(s.cfg.LogRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WarnContext(ctx, "append view log retry", "attempt", n+1, "record_id", record.ID, "err", err)
		}),
	)
}

func (s *viewRecordServiceImpl) incrementCounter(ctx context.Context, promptID uint64) error {
	key := s.keys.CountCacheKey(promptID)
	err := s.guard.do(ctx, func(ctx context.Context) error {
		_, err := s.cache.IncrementCount(ctx, key, 1, s.keys.CountCacheTTL())
		return err
	})
	if err != nil && redis.IsOOM(err) && s.flusher != nil {
		s.flusher.RequestFlush("cache memory pressure")
	}
	return err
}

func (s *viewRecordServiceImpl) GetViewCount(ctx context.Context, promptID uint64) (*ViewCount, error) {
	if promptID == 0 {
		return nil, fmt.Errorf("%w: prompt id is required", ErrParamInvalid)
	}
	durable, err := s.countRepo.LoadViewCount(ctx, promptID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatisticsUnavailable, err)
	}
	if durable == nil {
		exists, err := s.promptRepo.ExistsPrompt(ctx, promptID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStatisticsUnavailable, err)
		}
		if !exists {
			return nil, ErrPromptNotFound
		}
	}

	count := viewCountFromModel(promptID, durable)
	var delta int64
	err = s.guard.do(ctx, func(ctx context.Context) error {
		var err error
		delta, _, err = s.cache.GetCount(ctx, s.keys.CountCacheKey(promptID))
		return err
	})
	if err != nil {
		log.WarnContext(ctx, "view count cache unavailable, serving durable count", "prompt_id", promptID, "err", err)
		return &count, nil
	}
	if delta > 0 {
		if count, err = count.IncrementBy(delta); err != nil {
			return nil, err
		}
	}
	return &count, nil
}
