package repository

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// TopViewedRow 统计窗口内按浏览量聚合的一行
type TopViewedRow struct {
	PromptID     uint64
	PeriodViews  int64
	Title        string
	CategoryName string
	AuthorName   string
	LastViewedAt time.Time
}

// DailyCountRow 单日浏览量，Date 为该日零点
type DailyCountRow struct {
	Date  time.Time
	Count int64
}

// CountBucket 累计浏览量分桶条件 [Min, Max]，Max < 0 表示无上限
type CountBucket struct {
	Label string
	Min   int64
	Max   int64
}

type CountBucketRow struct {
	Label       string
	PromptCount int64
}

type ViewStatisticsRepo interface {
	// FindTopViewed 窗口 [start, end) 内浏览量最高的 prompt，categoryIDs 为空时不过滤
	FindTopViewed(ctx context.Context, start, end time.Time, categoryIDs []uint64, limit int) ([]*TopViewedRow, error)
	// FindDailyCounts 某个 prompt 在 [start, end) 内按 loc 自然日统计的浏览量，无浏览的日期不返回
	FindDailyCounts(ctx context.Context, promptID uint64, start, end time.Time, loc *time.Location) ([]*DailyCountRow, error)
	// FindViewCountDistribution 按累计浏览量分桶统计 prompt 数，未被浏览过的 prompt 记为 0，
	// 区间重叠时取第一个命中的桶，不属于任何桶的 prompt 不返回
	FindViewCountDistribution(ctx context.Context, buckets []CountBucket, categoryIDs []uint64) ([]*CountBucketRow, error)
}

type viewStatisticsRepoImpl struct {
	db *gorm.DB
}

func NewViewStatisticsRepo(db *gorm.DB) ViewStatisticsRepo {
	return &viewStatisticsRepoImpl{db: db}
}

func (r *viewStatisticsRepoImpl) FindTopViewed(ctx context.Context, start, end time.Time, categoryIDs []uint64, limit int) ([]*TopViewedRow, error) {
	query := r.db.WithContext(ctx).
		Table("prompt_view_logs AS l").
		Select("l.prompt_id, COUNT(*) AS period_views, p.title, p.category_name, p.author_name, MAX(l.viewed_at) AS last_viewed_at").
		Joins("JOIN prompt_templates p ON p.id = l.prompt_id").
		Where("l.viewed_at >= ? AND l.viewed_at < ?", start.UTC(), end.UTC())
	if len(categoryIDs) > 0 {
		query = query.Where("p.category_id IN ?", categoryIDs)
	}

	rows, err := query.
		Group("l.prompt_id, p.title, p.category_name, p.author_name").
		Order("period_views DESC, last_viewed_at DESC, l.prompt_id ASC").
		Limit(limit).
		Rows()
	if err != nil {
		return nil, errors.Wrap(err, "query top viewed prompts")
	}
	defer rows.Close()

	res := make([]*TopViewedRow, 0, limit)
	for rows.Next() {
		var (
			row  TopViewedRow
			last scanTime
		)
		if err = rows.Scan(&row.PromptID, &row.PeriodViews, &row.Title, &row.CategoryName, &row.AuthorName, &last); err != nil {
			return nil, errors.Wrap(err, "scan top viewed row")
		}
		row.LastViewedAt = last.Time
		res = append(res, &row)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate top viewed rows")
	}
	return res, nil
}

func (r *viewStatisticsRepoImpl) FindDailyCounts(ctx context.Context, promptID uint64, start, end time.Time, loc *time.Location) ([]*DailyCountRow, error) {
	if loc == nil {
		loc = time.UTC
	}
	// 数据库的 DATE() 依赖会话时区，这里取原始时间在 loc 下分桶
	rows, err := r.db.WithContext(ctx).
		Table("prompt_view_logs").
		Select("viewed_at").
		Where("prompt_id = ? AND viewed_at >= ? AND viewed_at < ?", promptID, start.UTC(), end.UTC()).
		Order("viewed_at ASC").
		Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "query daily counts of prompt %d", promptID)
	}
	defer rows.Close()

	res := make([]*DailyCountRow, 0)
	var last *DailyCountRow
	for rows.Next() {
		var viewedAt scanTime
		if err = rows.Scan(&viewedAt); err != nil {
			return nil, errors.Wrap(err, "scan daily count row")
		}
		y, m, d := viewedAt.In(loc).Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		if last == nil || !last.Date.Equal(day) {
			last = &DailyCountRow{Date: day}
			res = append(res, last)
		}
		last.Count++
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate daily count rows")
	}
	return res, nil
}

func (r *viewStatisticsRepoImpl) FindViewCountDistribution(ctx context.Context, buckets []CountBucket, categoryIDs []uint64) ([]*CountBucketRow, error) {
	if len(buckets) == 0 {
		return []*CountBucketRow{}, nil
	}

	var expr strings.Builder
	args := make([]any, 0, len(buckets)*3)
	expr.WriteString("CASE")
	for _, b := range buckets {
		if b.Max < 0 {
			expr.WriteString(" WHEN COALESCE(c.total_view_count, 0) >= ? THEN ?")
			args = append(args, b.Min, b.Label)
			continue
		}
		expr.WriteString(" WHEN COALESCE(c.total_view_count, 0) BETWEEN ? AND ? THEN ?")
		args = append(args, b.Min, b.Max, b.Label)
	}
	expr.WriteString(" ELSE '' END AS view_range, COUNT(*) AS prompt_count")

	query := r.db.WithContext(ctx).
		Table("prompt_templates AS p").
		Select(expr.String(), args...).
		Joins("LEFT JOIN prompt_view_counts c ON c.prompt_id = p.id")
	if len(categoryIDs) > 0 {
		query = query.Where("p.category_id IN ?", categoryIDs)
	}

	rows, err := query.Group("view_range").Rows()
	if err != nil {
		return nil, errors.Wrap(err, "query view count distribution")
	}
	defer rows.Close()

	res := make([]*CountBucketRow, 0, len(buckets))
	for rows.Next() {
		var row CountBucketRow
		if err = rows.Scan(&row.Label, &row.PromptCount); err != nil {
			return nil, errors.Wrap(err, "scan view count distribution row")
		}
		if row.Label == "" {
			continue
		}
		res = append(res, &row)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate view count distribution rows")
	}
	return res, nil
}
