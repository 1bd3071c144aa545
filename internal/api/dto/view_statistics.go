package dto

type ComparisonDTO struct {
	CurrentCount     int64   `json:"current_count"`
	PreviousCount    int64   `json:"previous_count"`
	Delta            int64   `json:"delta"`
	PercentageChange float64 `json:"percentage_change"`
	IsIncreased      bool    `json:"is_increased"`
	IsDecreased      bool    `json:"is_decreased"`
}

type ViewStatisticsDTO struct {
	TotalViewCount int64         `json:"total_view_count"`
	StartDate      string        `json:"start_date"`
	EndDate        string        `json:"end_date"`
	PreviousStart  string        `json:"previous_start"`
	PreviousEnd    string        `json:"previous_end"`
	Comparison     ComparisonDTO `json:"comparison"`
}

type WeeklyViewStatisticsDTO struct {
	PromptID      *uint64 `json:"prompt_id,omitempty"`
	ThisWeekCount int64   `json:"this_week_count"`
	LastWeekCount int64   `json:"last_week_count"`
	Delta         int64   `json:"delta"`
	ChangeRate    float64 `json:"change_rate"`
	WeekStartDate string  `json:"week_start_date"`
	WeekEndDate   string  `json:"week_end_date"`
	Trend         string  `json:"trend"` // UP / DOWN / STABLE
}

type TopViewedPromptDTO struct {
	Rank                     int     `json:"rank"`
	PromptID                 uint64  `json:"prompt_id"`
	Title                    string  `json:"title"`
	CategoryName             string  `json:"category_name"`
	AuthorName               string  `json:"author_name"`
	TotalViews               int64   `json:"total_views"`
	AllTimeViews             int64   `json:"all_time_views"`
	RoundedAverageDailyViews float64 `json:"average_daily_views"`
	LastViewedAt             string  `json:"last_viewed_at"`
	IsTopRanked              bool    `json:"is_top_ranked"`
	HasInconsistentData      bool    `json:"has_inconsistent_data"`
}

type DistributionQueryDTO struct {
	CategoryIDs []uint64 `form:"category_ids" validate:"omitempty,dive,gt=0"`
}

type ViewCountDistributionDTO struct {
	Range       string `json:"range"`
	MinCount    int64  `json:"min_count"`
	MaxCount    *int64 `json:"max_count"` // 无上限时为 null
	PromptCount int64  `json:"prompt_count"`
}

type DailyViewDTO struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type SyncReportDTO struct {
	Scanned         int      `json:"scanned"`
	Flushed         int      `json:"flushed"`
	Failed          int      `json:"failed"`
	Raised          int      `json:"raised"`
	FailedPromptIDs []uint64 `json:"failed_prompt_ids,omitempty"`
	DurationMs      int64    `json:"duration_ms"`
}
