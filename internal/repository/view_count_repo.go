package repository

import (
	"context"
	"time"

	"github.com/gonghojin/prompt-center-sub001/internal/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ViewCountRepo interface {
	// IncrementViewCount 原子自增，行不存在时以 by 作为初始值插入
	IncrementViewCount(ctx context.Context, promptID uint64, by int64) (*model.ViewCount, error)
	// LoadViewCount 从未被浏览过时返回 nil, nil
	LoadViewCount(ctx context.Context, promptID uint64) (*model.ViewCount, error)
	LoadViewCounts(ctx context.Context, promptIDs []uint64) (map[uint64]int64, error)
	// RaiseViewCount 仅当当前值小于 floor 时抬高到 floor
	RaiseViewCount(ctx context.Context, promptID uint64, floor int64) (bool, error)
	// MergeDelta 在一个事务内先 IncrementViewCount 再 RaiseViewCount，任一步失败整体回滚
	MergeDelta(ctx context.Context, promptID uint64, delta, floor int64) (*model.ViewCount, error)
	SumTotalViewCount(ctx context.Context) (int64, error)
}

type viewCountRepoImpl struct {
	db *gorm.DB
}

func NewViewCountRepo(db *gorm.DB) ViewCountRepo {
	return &viewCountRepoImpl{db: db}
}

func (r *viewCountRepoImpl) IncrementViewCount(ctx context.Context, promptID uint64, by int64) (*model.ViewCount, error) {
	if by <= 0 {
		return nil, errors.Errorf("increment of prompt %d must be positive, got %d", promptID, by)
	}
	var out *model.ViewCount
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := incrementWith(tx, promptID, by); err != nil {
			return err
		}
		var err error
		out, err = loadWith(tx, promptID)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "increment view count of prompt %d", promptID)
	}
	return out, nil
}

func (r *viewCountRepoImpl) LoadViewCount(ctx context.Context, promptID uint64) (*model.ViewCount, error) {
	count, err := loadWith(r.db.WithContext(ctx), promptID)
	if err != nil {
		return nil, errors.Wrapf(err, "load view count of prompt %d", promptID)
	}
	return count, nil
}

func (r *viewCountRepoImpl) LoadViewCounts(ctx context.Context, promptIDs []uint64) (map[uint64]int64, error) {
	res := make(map[uint64]int64, len(promptIDs))
	if len(promptIDs) == 0 {
		return res, nil
	}
	counts := make([]*model.ViewCount, 0, len(promptIDs))
	err := r.db.WithContext(ctx).Where("prompt_id IN ?", promptIDs).Find(&counts).Error
	if err != nil {
		return nil, errors.Wrap(err, "load view counts")
	}
	for _, c := range counts {
		res[c.PromptID] = c.TotalViewCount
	}
	return res, nil
}

func (r *viewCountRepoImpl) RaiseViewCount(ctx context.Context, promptID uint64, floor int64) (bool, error) {
	raised, err := raiseWith(r.db.WithContext(ctx), promptID, floor)
	if err != nil {
		return false, errors.Wrapf(err, "raise view count of prompt %d", promptID)
	}
	return raised, nil
}

func (r *viewCountRepoImpl) MergeDelta(ctx context.Context, promptID uint64, delta, floor int64) (*model.ViewCount, error) {
	var out *model.ViewCount
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &viewCountRepoImpl{db: tx}
		if delta > 0 {
			if _, err := txRepo.IncrementViewCount(ctx, promptID, delta); err != nil {
				return err
			}
		}
		if _, err := txRepo.RaiseViewCount(ctx, promptID, floor); err != nil {
			return err
		}
		var err error
		out, err = txRepo.LoadViewCount(ctx, promptID)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "merge delta %d into prompt %d", delta, promptID)
	}
	return out, nil
}

func (r *viewCountRepoImpl) SumTotalViewCount(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.ViewCount{}).
		Select("COALESCE(SUM(total_view_count), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "sum total view count")
	}
	return total, nil
}

// incrementWith 先尝试 UPDATE，影响 0 行再 INSERT ... ON CONFLICT 累加，并发插入时由数据库裁决
func incrementWith(tx *gorm.DB, promptID uint64, by int64) error {
	now := time.Now()
	res := tx.Model(&model.ViewCount{}).
		Where("prompt_id = ?", promptID).
		Updates(map[string]interface{}{
			"total_view_count": gorm.Expr("total_view_count + ?", by),
			"updated_at":       now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "prompt_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_view_count": gorm.Expr("total_view_count + ?", by),
			"updated_at":       now,
		}),
	}).Create(&model.ViewCount{
		PromptID:       promptID,
		TotalViewCount: by,
		CreatedAt:      now,
		UpdatedAt:      now,
	}).Error
}

func raiseWith(tx *gorm.DB, promptID uint64, floor int64) (bool, error) {
	if floor <= 0 {
		return false, nil
	}
	now := time.Now()
	res := tx.Model(&model.ViewCount{}).
		Where("prompt_id = ? AND total_view_count < ?", promptID, floor).
		Updates(map[string]interface{}{
			"total_view_count": floor,
			"updated_at":       now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	res = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "prompt_id"}},
		DoNothing: true,
	}).Create(&model.ViewCount{
		PromptID:       promptID,
		TotalViewCount: floor,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func loadWith(tx *gorm.DB, promptID uint64) (*model.ViewCount, error) {
	var count model.ViewCount
	err := tx.Where("prompt_id = ?", promptID).First(&count).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &count, nil
}
