package repository

import (
	"context"

	"github.com/gonghojin/prompt-center-sub001/internal/model"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type PromptRepo interface {
	ExistsPrompt(ctx context.Context, promptID uint64) (bool, error)
}

type promptRepoImpl struct {
	db *gorm.DB
}

func NewPromptRepo(db *gorm.DB) PromptRepo {
	return &promptRepoImpl{db: db}
}

func (r *promptRepoImpl) ExistsPrompt(ctx context.Context, promptID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PromptTemplate{}).Where("id = ?", promptID).Limit(1).Count(&count).Error
	if err != nil {
		return false, errors.Wrapf(err, "check prompt %d", promptID)
	}
	return count > 0, nil
}
