package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gonghojin/prompt-center-sub001/internal/pkg/consts"
)

const day = 24 * time.Hour

// ComparisonPeriod 当前统计窗口 [Start, End)，上一窗口为紧邻 Start 之前的等长区间
type ComparisonPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewComparisonPeriod(start, end time.Time) (ComparisonPeriod, error) {
	p := ComparisonPeriod{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return ComparisonPeriod{}, err
	}
	return p, nil
}

func (p ComparisonPeriod) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidPeriod)
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidPeriod, p.End.Format(time.RFC3339), p.Start.Format(time.RFC3339))
	}
	return nil
}

func (p ComparisonPeriod) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

func (p ComparisonPeriod) Previous() ComparisonPeriod {
	return ComparisonPeriod{Start: p.Start.Add(-p.Duration()), End: p.Start}
}

// Days 向上取整，最少 1 天
func (p ComparisonPeriod) Days() int {
	days := int(math.Ceil(float64(p.Duration()) / float64(day)))
	if days < 1 {
		return 1
	}
	return days
}

// ComparisonResult 当前与上一窗口的对比
type ComparisonResult struct {
	CurrentCount     int64   `json:"current_count"`
	PreviousCount    int64   `json:"previous_count"`
	Delta            int64   `json:"delta"`
	PercentageChange float64 `json:"percentage_change"`
}

func NewComparisonResult(current, previous int64) ComparisonResult {
	return ComparisonResult{
		CurrentCount:     current,
		PreviousCount:    previous,
		Delta:            current - previous,
		PercentageChange: percentageChange(current, previous),
	}
}

func (r ComparisonResult) IsIncreased() bool { return r.Delta > 0 }

func (r ComparisonResult) IsDecreased() bool { return r.Delta < 0 }

// percentageChange 上一窗口为 0 时: 当前大于 0 记为 100%，都为 0 记为 0%
func percentageChange(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type ViewStatistics struct {
	TotalViewCount int64            `json:"total_view_count"`
	Period         ComparisonPeriod `json:"period"`
	PreviousPeriod ComparisonPeriod `json:"previous_period"`
	Comparison     ComparisonResult `json:"comparison"`
}

// WeeklyViewStatistics 周一到周日的自然周对比
type WeeklyViewStatistics struct {
	PromptID      *uint64   `json:"prompt_id,omitempty"`
	ThisWeekCount int64     `json:"this_week_count"`
	LastWeekCount int64     `json:"last_week_count"`
	Delta         int64     `json:"delta"`
	ChangeRate    float64   `json:"change_rate"`
	WeekStartDate time.Time `json:"week_start_date"`
	WeekEndDate   time.Time `json:"week_end_date"`
}

func NewWeeklyViewStatistics(promptID *uint64, thisWeek, lastWeek int64, weekStart time.Time) *WeeklyViewStatistics {
	return &WeeklyViewStatistics{
		PromptID:      promptID,
		ThisWeekCount: thisWeek,
		LastWeekCount: lastWeek,
		Delta:         thisWeek - lastWeek,
		ChangeRate:    round2(percentageChange(thisWeek, lastWeek)),
		WeekStartDate: weekStart,
		WeekEndDate:   weekStart.AddDate(0, 0, 6),
	}
}

func (w *WeeklyViewStatistics) IsIncreased() bool { return w.Delta > 0 }

func (w *WeeklyViewStatistics) IsDecreased() bool { return w.Delta < 0 }

func (w *WeeklyViewStatistics) IsStable() bool { return w.Delta == 0 }

// WeekStart now 所在自然周的周一零点，时区跟随 now
func WeekStart(now time.Time) time.Time {
	offset := (int(now.Weekday()) + 6) % 7
	y, m, d := now.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, now.Location())
}

// TopViewedPrompt 热门排行的一行，TotalViews 为窗口内浏览量
type TopViewedPrompt struct {
	Rank              int       `json:"rank"`
	PromptID          uint64    `json:"prompt_id"`
	Title             string    `json:"title"`
	CategoryName      string    `json:"category_name"`
	AuthorName        string    `json:"author_name"`
	TotalViews        int64     `json:"total_views"`
	AllTimeViews      int64     `json:"all_time_views"`
	AverageDailyViews float64   `json:"average_daily_views"`
	LastViewedAt      time.Time `json:"last_viewed_at"`
}

func NewTopViewedPrompt(rank int, promptID uint64, title, category, author string,
	totalViews, allTimeViews int64, averageDaily float64, lastViewedAt time.Time) (*TopViewedPrompt, error) {
	if rank <= 0 {
		return nil, fmt.Errorf("%w: rank must be positive", ErrParamInvalid)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is blank for prompt %d", ErrParamInvalid, promptID)
	}
	if totalViews < 0 || allTimeViews < 0 || averageDaily < 0 {
		return nil, fmt.Errorf("%w: negative view count for prompt %d", ErrParamInvalid, promptID)
	}
	return &TopViewedPrompt{
		Rank:              rank,
		PromptID:          promptID,
		Title:             title,
		CategoryName:      strings.TrimSpace(category),
		AuthorName:        strings.TrimSpace(author),
		TotalViews:        totalViews,
		AllTimeViews:      allTimeViews,
		AverageDailyViews: averageDaily,
		LastViewedAt:      lastViewedAt,
	}, nil
}

// HasInconsistentData 窗口浏览量超过累计浏览量，通常说明对账滞后
func (t *TopViewedPrompt) HasInconsistentData() bool {
	return t.TotalViews > t.AllTimeViews
}

func (t *TopViewedPrompt) IsTopRanked() bool {
	return t.Rank <= consts.TopRankedThreshold
}

func (t *TopViewedPrompt) RoundedAverageDailyViews() float64 {
	return round2(t.AverageDailyViews)
}

// DailyViewStatistics 单日浏览量
type DailyViewStatistics struct {
	Date  time.Time `json:"date"`
	Count int64     `json:"count"`
}

// UnboundedViewCount 区间无上限
const UnboundedViewCount int64 = -1

// ViewCountRange 累计浏览量区间 [Min, Max]，两端都包含
type ViewCountRange struct {
	Min   int64  `json:"min"`
	Max   int64  `json:"max"`
	Label string `json:"label"`
}

func NewViewCountRange(minCount, maxCount int64, label string) (ViewCountRange, error) {
	r := ViewCountRange{Min: minCount, Max: maxCount, Label: strings.TrimSpace(label)}
	if err := r.Validate(); err != nil {
		return ViewCountRange{}, err
	}
	return r, nil
}

func (r ViewCountRange) Validate() error {
	if r.Min < 0 {
		return fmt.Errorf("%w: range min must not be negative", ErrParamInvalid)
	}
	if !r.Unbounded() && r.Max < r.Min {
		return fmt.Errorf("%w: range max %d is below min %d", ErrParamInvalid, r.Max, r.Min)
	}
	if strings.TrimSpace(r.Label) == "" {
		return fmt.Errorf("%w: range label is required", ErrParamInvalid)
	}
	return nil
}

func (r ViewCountRange) Unbounded() bool { return r.Max == UnboundedViewCount }

func (r ViewCountRange) Contains(n int64) bool {
	return n >= r.Min && (r.Unbounded() || n <= r.Max)
}

// DefaultViewCountRanges 默认分布区间，覆盖 0 到无上限
func DefaultViewCountRanges() []ViewCountRange {
	return []ViewCountRange{
		{Min: 0, Max: 10, Label: "0-10"},
		{Min: 11, Max: 50, Label: "11-50"},
		{Min: 51, Max: 100, Label: "51-100"},
		{Min: 101, Max: 500, Label: "101-500"},
		{Min: 501, Max: 1000, Label: "501-1000"},
		{Min: 1001, Max: UnboundedViewCount, Label: "1000+"},
	}
}

// ViewCountDistribution 落在某个累计浏览量区间内的 prompt 数
type ViewCountDistribution struct {
	Range       ViewCountRange `json:"range"`
	PromptCount int64          `json:"prompt_count"`
}
