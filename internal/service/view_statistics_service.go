package service

import (
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/consts"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/redis"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/util"
	"github.com/gonghojin/prompt-center-sub001/internal/repository"
	"golang.org/x/sync/errgroup"
)

type ViewStatisticsService interface {
	// GetViewStatistics 窗口对比统计，promptID 为空时统计全站
	GetViewStatistics(ctx context.Context, period ComparisonPeriod, promptID *uint64) (*ViewStatistics, error)
	GetWeeklyStatistics(ctx context.Context, promptID *uint64) (*WeeklyViewStatistics, error)
	// GetTopViewed limit 为 0 时取默认值
	GetTopViewed(ctx context.Context, period ComparisonPeriod, limit int, categoryIDs []uint64) ([]*TopViewedPrompt, error)
	GetDailyStatistics(ctx context.Context, promptID uint64, period ComparisonPeriod) ([]*DailyViewStatistics, error)
	// GetViewCountDistribution ranges 为空时使用默认区间，结果按 ranges 顺序，没有 prompt 的区间补 0
	GetViewCountDistribution(ctx context.Context, ranges []ViewCountRange, categoryIDs []uint64) ([]*ViewCountDistribution, error)
}

type viewStatisticsServiceImpl struct {
	cfg        config.ViewConfig
	logRepo    repository.ViewLogRepo
	countRepo  repository.ViewCountRepo
	statsRepo  repository.ViewStatisticsRepo
	promptRepo repository.PromptRepo
	loc        *time.Location
	now        func() time.Time
}

func NewViewStatisticsService(
	cfg config.ViewConfig,
	logRepo repository.ViewLogRepo,
	countRepo repository.ViewCountRepo,
	statsRepo repository.ViewStatisticsRepo,
	promptRepo repository.PromptRepo,
) ViewStatisticsService {
	cfg = cfg.WithDefaults()
	return &viewStatisticsServiceImpl{
		cfg:        cfg,
		logRepo:    logRepo,
		countRepo:  countRepo,
		statsRepo:  statsRepo,
		promptRepo: promptRepo,
		loc:        cfg.TimeLocation(),
		now:        time.Now,
	}
}

func (s *viewStatisticsServiceImpl) GetViewStatistics(ctx context.Context, period ComparisonPeriod, promptID *uint64) (*ViewStatistics, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkPrompt(ctx, promptID); err != nil {
		return nil, err
	}
	previous := period.Previous()

	var total, current, prev int64
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = s.totalViews(gCtx, promptID)
		return err
	})
	g.Go(func() error {
		var err error
		current, err = s.logRepo.CountBetween(gCtx, promptID, period.Start, period.End)
		return err
	})
	g.Go(func() error {
		var err error
		prev, err = s.logRepo.CountBetween(gCtx, promptID, previous.Start, previous.End)
		return err
	})
	if err := g.Wait(); err != nil {
		log.ErrorContext(ctx, "query view statistics failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrStatisticsUnavailable, err)
	}

	return &ViewStatistics{
		TotalViewCount: total,
		Period:         period,
		PreviousPeriod: previous,
		Comparison:     NewComparisonResult(current, prev),
	}, nil
}

func (s *viewStatisticsServiceImpl) totalViews(ctx context.Context, promptID *uint64) (int64, error) {
	if promptID == nil {
		return s.countRepo.SumTotalViewCount(ctx)
	}
	m, err := s.countRepo.LoadViewCount(ctx, *promptID)
	if err != nil {
		return 0, err
	}
	if m == nil {
		return 0, nil
	}
	return m.TotalViewCount, nil
}

func (s *viewStatisticsServiceImpl) GetWeeklyStatistics(ctx context.Context, promptID *uint64) (*WeeklyViewStatistics, error) {
	if err := s.checkPrompt(ctx, promptID); err != nil {
		return nil, err
	}
	weekStart := WeekStart(s.now().In(s.loc))
	cacheKey := consts.ViewStatsWeeklyKey + scopeKey(promptID) + ":" + weekStart.Format(time.DateOnly)

	cached := &WeeklyViewStatistics{}
	if s.loadCache(ctx, cacheKey, cached) {
		return cached, nil
	}

	thisWeekEnd := weekStart.AddDate(0, 0, 7)
	lastWeekStart := weekStart.AddDate(0, 0, -7)
	var thisWeek, lastWeek int64
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		thisWeek, err = s.logRepo.CountBetween(gCtx, promptID, weekStart, thisWeekEnd)
		return err
	})
	g.Go(func() error {
		var err error
		lastWeek, err = s.logRepo.CountBetween(gCtx, promptID, lastWeekStart, weekStart)
		return err
	})
	if err := g.Wait(); err != nil {
		log.ErrorContext(ctx, "query weekly view statistics failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrStatisticsUnavailable, err)
	}

	stats := NewWeeklyViewStatistics(promptID, thisWeek, lastWeek, weekStart)
	s.storeCache(ctx, cacheKey, stats)
	return stats, nil
}

func (s *viewStatisticsServiceImpl) GetTopViewed(ctx context.Context, period ComparisonPeriod, limit int, categoryIDs []uint64) ([]*TopViewedPrompt, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = consts.TopViewedDefaultLimit
	}
	if limit < 0 || limit > consts.TopViewedMaxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrParamInvalid, consts.TopViewedMaxLimit)
	}

	cacheKey := topCacheKey(period, limit, categoryIDs)
	cached := make([]*TopViewedPrompt, 0)
	if s.loadCache(ctx, cacheKey, &cached) {
		return cached, nil
	}

	rows, err := s.statsRepo.FindTopViewed(ctx, period.Start, period.End, categoryIDs, limit)
	if err != nil {
		log.ErrorContext(ctx, "query top viewed prompts failed", "err", err)
		return nil, fmt.Errorf("%w: %w", ErrStatisticsUnavailable, err)
	}
	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PromptID)
	}
	allTime, err := s.countRepo.LoadViewCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStatisticsUnavailable, err)
	}

	days := float64(period.Days())
	result := make([]*TopViewedPrompt, 0, len(rows))
	rank := 0
	var lastViews int64 = -1
	for _, row := range rows {
		// 浏览量相同的并列同一名次
		if row.PeriodViews != lastViews {
			rank++
			lastViews = row.PeriodViews
		}
		item, err := NewTopViewedPrompt(rank, row.PromptID, row.Title, row.CategoryName, row.AuthorName,
			row.PeriodViews, allTime[row.PromptID], float64(row.PeriodViews)/days, row.LastViewedAt)
		if err != nil {
			log.WarnContext(ctx, "skip invalid top viewed row", "prompt_id", row.PromptID, "err", err)
			continue
		}
		if item.HasInconsistentData() {
			log.WarnContext(ctx, "period views exceed all-time views, reconcile pending",
				"prompt_id", item.PromptID, "period_views", item.TotalViews, "all_time_views", item.AllTimeViews)
		}
		result = append(result, item)
	}

	s.storeCache(ctx, cacheKey, result)
	return result, nil
}

func (s *viewStatisticsServiceImpl) GetDailyStatistics(ctx context.Context, promptID uint64, period ComparisonPeriod) ([]*DailyViewStatistics, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkPrompt(ctx, &promptID); err != nil {
		return nil, err
	}
	rows, err := s.statsRepo.FindDailyCounts(ctx, promptID, period.Start, period.End, s.loc)
	if err != nil {
		log.ErrorContext(ctx, "query daily view counts failed", "prompt_id", promptID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrStatisticsUnavailable, err)
	}

	dataMap := make(map[string]int64, len(rows))
	for _, row := range rows {
		dataMap[row.Date.Format(time.DateOnly)] = row.Count
	}

	result := make([]*DailyViewStatistics, 0, period.Days())
	for d := util.GetMidnight(period.Start.In(s.loc)); d.Before(period.End); d = d.AddDate(0, 0, 1) {
		result = append(result, &DailyViewStatistics{Date: d, Count: dataMap[d.Format(time.DateOnly)]})
	}
	return result, nil
}

func (s *viewStatisticsServiceImpl) GetViewCountDistribution(ctx context.Context, ranges []ViewCountRange, categoryIDs []uint64) ([]*ViewCountDistribution, error) {
	if len(ranges) == 0 {
		ranges = DefaultViewCountRanges()
	}
	buckets := make([]repository.CountBucket, 0, len(ranges))
	seen := make(map[string]struct{}, len(ranges))
	for _, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, ok := seen[r.Label]; ok {
			return nil, fmt.Errorf("%w: duplicate range label %q", ErrParamInvalid, r.Label)
		}
		seen[r.Label] = struct{}{}
		buckets = append(buckets, repository.CountBucket{Label: r.Label, Min: r.Min, Max: r.Max})
	}

	rows, err := s.statsRepo.FindViewCountDistribution(ctx, buckets, categoryIDs)
	if err != nil {
		log.ErrorContext(ctx, "query view count distribution failed", "categories", categoryIDs, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrStatisticsUnavailable, err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Label] = row.PromptCount
	}

	result := make([]*ViewCountDistribution, 0, len(ranges))
	for _, r := range ranges {
		result = append(result, &ViewCountDistribution{Range: r, PromptCount: counts[r.Label]})
	}
	return result, nil
}

func (s *viewStatisticsServiceImpl) checkPrompt(ctx context.Context, promptID *uint64) error {
	if promptID == nil {
		return nil
	}
	if *promptID == 0 {
		return fmt.Errorf("%w: prompt id is required", ErrParamInvalid)
	}
	exists, err := s.promptRepo.ExistsPrompt(ctx, *promptID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStatisticsUnavailable, err)
	}
	if !exists {
		return ErrPromptNotFound
	}
	return nil
}

func (s *viewStatisticsServiceImpl) cacheEnabled() bool {
	return redis.Rdb != nil && s.cfg.StatsCacheTTL > 0
}

// loadCache 统计缓存只是加速，读失败按未命中处理
func (s *viewStatisticsServiceImpl) loadCache(ctx context.Context, key string, out any) bool {
	if !s.cacheEnabled() {
		return false
	}
	val, err := redis.GetValue(ctx, key)
	if err != nil {
		log.WarnContext(ctx, "read view stats cache failed", "key", key, "err", err)
		return false
	}
	if val == "" {
		return false
	}
	if err = json.Unmarshal([]byte(val), out); err != nil {
		log.WarnContext(ctx, "decode view stats cache failed", "key", key, "err", err)
		return false
	}
	return true
}

func (s *viewStatisticsServiceImpl) storeCache(ctx context.Context, key string, v any) {
	if !s.cacheEnabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err = redis.SetWithExpiration(ctx, key, data, s.cfg.StatsCacheTTL); err != nil {
		log.WarnContext(ctx, "write view stats cache failed", "key", key, "err", err)
	}
}

func scopeKey(promptID *uint64) string {
	if promptID == nil {
		return "all"
	}
	return strconv.FormatUint(*promptID, 10)
}

func topCacheKey(period ComparisonPeriod, limit int, categoryIDs []uint64) string {
	var b strings.Builder
	b.WriteString(consts.ViewStatsTopKey)
	b.WriteString(strconv.FormatInt(period.Start.Unix(), 10))
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(period.End.Unix(), 10))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(limit))
	for i, id := range categoryIDs {
		if i == 0 {
			b.WriteByte(':')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(id, 10))
	}
	return b.String()
}

