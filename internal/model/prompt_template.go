package model

import (
	"time"
)

// PromptTemplate 只映射统计需要的列，完整的模板 CRUD 不在本服务
type PromptTemplate struct {
	ID           uint64    `gorm:"primaryKey"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	CategoryID   uint64    `gorm:"not null;default:0;index:idx_prompt_templates_category" json:"category_id"`
	CategoryName string    `gorm:"type:varchar(100);not null;default:''" json:"category_name"`
	AuthorName   string    `gorm:"type:varchar(100);not null;default:''" json:"author_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (PromptTemplate) TableName() string {
	return "prompt_templates"
}
