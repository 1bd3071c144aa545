package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gonghojin/prompt-center-sub001/internal/api/dto"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/response"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/util"
	"github.com/gonghojin/prompt-center-sub001/internal/service"
	"github.com/jinzhu/copier"
)

// timeCopyOption 时间字段拷贝到 DTO 时转为 RFC3339 字符串
var timeCopyOption = copier.Option{
	Converters: []copier.TypeConverter{{
		SrcType: time.Time{},
		DstType: copier.String,
		Fn: func(src interface{}) (interface{}, error) {
			t, ok := src.(time.Time)
			if !ok {
				return nil, fmt.Errorf("unexpected time value %T", src)
			}
			return t.Format(time.RFC3339), nil
		},
	}},
}

type ViewStatisticsHandler struct {
	statsSvc service.ViewStatisticsService
	loc      *time.Location
}

func NewViewStatisticsHandler(statsSvc service.ViewStatisticsService, loc *time.Location) *ViewStatisticsHandler {
	return &ViewStatisticsHandler{
		statsSvc: statsSvc,
		loc:      loc,
	}
}

// GetStatistics 窗口浏览量与上一等长窗口对比
func (h *ViewStatisticsHandler) GetStatistics(c *gin.Context) {
	var req dto.PeriodQueryDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Fail(c, response.BadRequest, err.Error())
		return
	}
	period, ok := bindPeriod(c, req.StartDate, req.EndDate, h.loc)
	if !ok {
		return
	}

	stats, err := h.statsSvc.GetViewStatistics(c.Request.Context(), period, req.PromptID)
	if err != nil {
		response.Error(c, err)
		return
	}

	res := &dto.ViewStatisticsDTO{
		TotalViewCount: stats.TotalViewCount,
		StartDate:      stats.Period.Start.Format(time.RFC3339),
		EndDate:        stats.Period.End.Format(time.RFC3339),
		PreviousStart:  stats.PreviousPeriod.Start.Format(time.RFC3339),
		PreviousEnd:    stats.PreviousPeriod.End.Format(time.RFC3339),
	}
	if err = copier.Copy(&res.Comparison, &stats.Comparison); err != nil {
		response.Error(c, err)
		return
	}
	res.Comparison.IsIncreased = stats.Comparison.IsIncreased()
	res.Comparison.IsDecreased = stats.Comparison.IsDecreased()
	response.Success(c, res)
}

// GetWeekly 本周与上周（周一至周日）对比
func (h *ViewStatisticsHandler) GetWeekly(c *gin.Context) {
	var req dto.WeeklyQueryDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Fail(c, response.BadRequest, err.Error())
		return
	}

	stats, err := h.statsSvc.GetWeeklyStatistics(c.Request.Context(), req.PromptID)
	if err != nil {
		response.Error(c, err)
		return
	}

	res := &dto.WeeklyViewStatisticsDTO{}
	if err = copier.CopyWithOption(res, stats, timeCopyOption); err != nil {
		response.Error(c, err)
		return
	}
	res.WeekStartDate = stats.WeekStartDate.Format(time.DateOnly)
	res.WeekEndDate = stats.WeekEndDate.Format(time.DateOnly)
	switch {
	case stats.IsIncreased():
		res.Trend = "UP"
	case stats.IsDecreased():
		res.Trend = "DOWN"
	default:
		res.Trend = "STABLE"
	}
	response.Success(c, res)
}

// GetTopViewed 窗口内浏览量排行
func (h *ViewStatisticsHandler) GetTopViewed(c *gin.Context) {
	var req dto.TopViewedQueryDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Fail(c, response.BadRequest, err.Error())
		return
	}
	period, ok := bindPeriod(c, req.StartDate, req.EndDate, h.loc)
	if !ok {
		return
	}

	top, err := h.statsSvc.GetTopViewed(c.Request.Context(), period, req.Limit, req.CategoryIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	res := make([]*dto.TopViewedPromptDTO, 0, len(top))
	for _, t := range top {
		item := &dto.TopViewedPromptDTO{}
		if err = copier.CopyWithOption(item, t, timeCopyOption); err != nil {
			response.Error(c, err)
			return
		}
		item.RoundedAverageDailyViews = t.RoundedAverageDailyViews()
		item.IsTopRanked = t.IsTopRanked()
		item.HasInconsistentData = t.HasInconsistentData()
		res = append(res, item)
	}
	response.Success(c, res)
}

// GetViewCountDistribution 累计浏览量区间分布
func (h *ViewStatisticsHandler) GetViewCountDistribution(c *gin.Context) {
	var req dto.DistributionQueryDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Fail(c, response.BadRequest, err.Error())
		return
	}

	distribution, err := h.statsSvc.GetViewCountDistribution(c.Request.Context(), nil, req.CategoryIDs)
	if err != nil {
		response.Error(c, err)
		return
	}

	res := make([]*dto.ViewCountDistributionDTO, 0, len(distribution))
	for _, d := range distribution {
		item := &dto.ViewCountDistributionDTO{
			Range:       d.Range.Label,
			MinCount:    d.Range.Min,
			PromptCount: d.PromptCount,
		}
		if !d.Range.Unbounded() {
			maxCount := d.Range.Max
			item.MaxCount = &maxCount
		}
		res = append(res, item)
	}
	response.Success(c, res)
}
