package repository

import (
	"context"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/gonghojin/prompt-center-sub001/internal/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// PromptLogCount 某个 prompt 的日志条数与持久化计数
type PromptLogCount struct {
	PromptID     uint64
	LogCount     int64
	DurableCount int64
}

type ViewLogRepo interface {
	// SaveViewLog 追加一条浏览日志，主键重复视为已写入
	SaveViewLog(ctx context.Context, log *model.ViewLog) error
	CountByPrompt(ctx context.Context, promptID uint64) (int64, error)
	// CountBetween 统计 [start, end) 内的日志数，promptID 为空时统计全部
	CountBetween(ctx context.Context, promptID *uint64, start, end time.Time) (int64, error)
	// FindRecentPromptIDs 返回 since 之后有浏览记录的 prompt
	FindRecentPromptIDs(ctx context.Context, since time.Time, limit int) ([]uint64, error)
	// FindUnderCounted 返回日志数大于持久化计数的 prompt
	FindUnderCounted(ctx context.Context, promptIDs []uint64) ([]*PromptLogCount, error)
	// ListLogCounts 按 prompt_id 游标分页返回日志数与持久化计数
	ListLogCounts(ctx context.Context, afterID uint64, limit int) ([]*PromptLogCount, error)
}

type viewLogRepoImpl struct {
	db *gorm.DB
}

func NewViewLogRepo(db *gorm.DB) ViewLogRepo {
	return &viewLogRepoImpl{db: db}
}

func (r *viewLogRepoImpl) SaveViewLog(ctx context.Context, log *model.ViewLog) error {
	err := r.db.WithContext(ctx).Create(log).Error
	if err != nil && !isDuplicateError(err) {
		return errors.Wrapf(err, "save view log of prompt %d", log.PromptID)
	}
	return nil
}

func (r *viewLogRepoImpl) CountByPrompt(ctx context.Context, promptID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ViewLog{}).
		Where("prompt_id = ?", promptID).
		Count(&count).Error
	if err != nil {
		return 0, errors.Wrapf(err, "count view logs of prompt %d", promptID)
	}
	return count, nil
}

func (r *viewLogRepoImpl) CountBetween(ctx context.Context, promptID *uint64, start, end time.Time) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.ViewLog{}).
		Where("viewed_at >= ? AND viewed_at < ?", start.UTC(), end.UTC())
	if promptID != nil {
		query = query.Where("prompt_id = ?", *promptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, errors.Wrap(err, "count view logs between")
	}
	return count, nil
}

func (r *viewLogRepoImpl) FindRecentPromptIDs(ctx context.Context, since time.Time, limit int) ([]uint64, error) {
	ids := make([]uint64, 0)
	err := r.db.WithContext(ctx).Model(&model.ViewLog{}).
		Distinct("prompt_id").
		Where("viewed_at >= ?", since.UTC()).
		Order("prompt_id ASC").
		Limit(limit).
		Pluck("prompt_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, "find recent viewed prompts")
	}
	return ids, nil
}

func (r *viewLogRepoImpl) FindUnderCounted(ctx context.Context, promptIDs []uint64) ([]*PromptLogCount, error) {
	rows := make([]*PromptLogCount, 0)
	if len(promptIDs) == 0 {
		return rows, nil
	}
	err := r.logCountQuery(ctx).
		Where("l.prompt_id IN ?", promptIDs).
		Having("COUNT(*) > COALESCE(c.total_view_count, 0)").
		Order("l.prompt_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "find under counted prompts")
	}
	return rows, nil
}

func (r *viewLogRepoImpl) ListLogCounts(ctx context.Context, afterID uint64, limit int) ([]*PromptLogCount, error) {
	rows := make([]*PromptLogCount, 0, limit)
	err := r.logCountQuery(ctx).
		Where("l.prompt_id > ?", afterID).
		Order("l.prompt_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrapf(err, "list log counts after %d", afterID)
	}
	return rows, nil
}

func (r *viewLogRepoImpl) logCountQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("prompt_view_logs AS l").
		Select("l.prompt_id AS prompt_id, COUNT(*) AS log_count, COALESCE(c.total_view_count, 0) AS durable_count").
		Joins("LEFT JOIN prompt_view_counts c ON c.prompt_id = l.prompt_id").
		Group("l.prompt_id, c.total_view_count")
}

func isDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
