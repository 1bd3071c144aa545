package model

import (
	"time"
)

// ViewCount 每个 prompt 一行的持久化浏览总数
type ViewCount struct {
	PromptID       uint64    `gorm:"primaryKey;autoIncrement:false" json:"prompt_id"`
	TotalViewCount int64     `gorm:"not null;default:0" json:"total_view_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `gorm:"index:idx_prompt_view_counts_updated_at" json:"updated_at"`
}

func (ViewCount) TableName() string {
	return "prompt_view_counts"
}
