package dto

// RecordViewDTO 记录浏览的请求体，匿名 id 也可以通过 X-Anonymous-Id 头传入，超长 id 由服务端取摘要
type RecordViewDTO struct {
	AnonymousID string `json:"anonymous_id"`
}

// RecordViewResultDTO 记录请求已受理，计数在后台完成
type RecordViewResultDTO struct {
	PromptID uint64 `json:"prompt_id"`
	Accepted bool   `json:"accepted"`
}

type ViewCountDTO struct {
	PromptID       uint64 `json:"prompt_id"`
	TotalViewCount int64  `json:"total_view_count"`
}

// PeriodQueryDTO 日期为 2006-01-02 或 RFC3339，纯日期的结束日包含当天
type PeriodQueryDTO struct {
	StartDate string  `form:"start_date" validate:"required"`
	EndDate   string  `form:"end_date" validate:"required"`
	PromptID  *uint64 `form:"prompt_id" validate:"omitempty,gt=0"`
}

type WeeklyQueryDTO struct {
	PromptID *uint64 `form:"prompt_id" validate:"omitempty,gt=0"`
}

type TopViewedQueryDTO struct {
	StartDate   string   `form:"start_date" validate:"required"`
	EndDate     string   `form:"end_date" validate:"required"`
	Limit       int      `form:"limit" validate:"gte=0,lte=100"`
	CategoryIDs []uint64 `form:"category_ids" validate:"omitempty,dive,gt=0"`
}
