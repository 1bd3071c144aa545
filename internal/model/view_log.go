package model

import (
	"time"
)

// ViewLog 单次被计入的浏览事件，只追加不修改
type ViewLog struct {
	ID          string    `gorm:"primaryKey;type:char(36)" json:"id"`
	PromptID    uint64    `gorm:"not null;index:idx_prompt_view_logs_prompt_viewed,priority:1" json:"prompt_id"`
	UserID      *uint64   `gorm:"index:idx_prompt_view_logs_user_viewed,priority:1" json:"user_id"`
	AnonymousID string    `gorm:"type:varchar(64);not null;default:''" json:"anonymous_id"`
	IPAddress   string    `gorm:"type:varchar(45);not null" json:"ip_address"`
	ViewerType  string    `gorm:"type:varchar(32);not null" json:"viewer_type"`
	ViewedAt    time.Time `gorm:"not null;index:idx_prompt_view_logs_prompt_viewed,priority:2;index:idx_prompt_view_logs_user_viewed,priority:2;index:idx_prompt_view_logs_viewed_at" json:"viewed_at"`
}

func (ViewLog) TableName() string {
	return "prompt_view_logs"
}
