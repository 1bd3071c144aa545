package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gonghojin/prompt-center-sub001/internal/api/dto"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/consts"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/response"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/util"
	"github.com/gonghojin/prompt-center-sub001/internal/service"
)

type ViewHandler struct {
	recordSvc service.ViewRecordService
	statsSvc  service.ViewStatisticsService
	loc       *time.Location
}

func NewViewHandler(recordSvc service.ViewRecordService, statsSvc service.ViewStatisticsService, loc *time.Location) *ViewHandler {
	return &ViewHandler{
		recordSvc: recordSvc,
		statsSvc:  statsSvc,
		loc:       loc,
	}
}

// RecordView 记录一次浏览，后台完成计数，不阻塞调用方
func (h *ViewHandler) RecordView(c *gin.Context) {
	promptID, ok := promptIDParam(c)
	if !ok {
		return
	}

	var req dto.RecordViewDTO
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, err)
			return
		}
	}
	if header := strings.TrimSpace(c.GetHeader(consts.HeaderAnonymousID)); header != "" {
		req.AnonymousID = header
	}

	err := h.recordSvc.RecordViewAsync(c.Request.Context(), service.RecordViewCommand{
		PromptID:    promptID,
		UserID:      c.GetUint64(consts.CtxUserIDKey),
		AnonymousID: req.AnonymousID,
		IPAddress:   c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.RecordViewResultDTO{PromptID: promptID, Accepted: true})
}

// GetViewCount 当前浏览量
func (h *ViewHandler) GetViewCount(c *gin.Context) {
	promptID, ok := promptIDParam(c)
	if !ok {
		return
	}

	count, err := h.recordSvc.GetViewCount(c.Request.Context(), promptID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ViewCountDTO{PromptID: count.PromptID, TotalViewCount: count.TotalViewCount})
}

// GetDailyStatistics 按天的浏览量，没有浏览的日期补 0
func (h *ViewHandler) GetDailyStatistics(c *gin.Context) {
	promptID, ok := promptIDParam(c)
	if !ok {
		return
	}
	var req dto.PeriodQueryDTO
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	period, ok := bindPeriod(c, req.StartDate, req.EndDate, h.loc)
	if !ok {
		return
	}

	days, err := h.statsSvc.GetDailyStatistics(c.Request.Context(), promptID, period)
	if err != nil {
		response.Error(c, err)
		return
	}
	res := make([]*dto.DailyViewDTO, 0, len(days))
	for _, d := range days {
		res = append(res, &dto.DailyViewDTO{Date: d.Date.Format(time.DateOnly), Count: d.Count})
	}
	response.Success(c, res)
}

func promptIDParam(c *gin.Context) (uint64, bool) {
	promptID, err := strconv.ParseUint(c.Param("prompt_id"), 10, 64)
	if err != nil || promptID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return 0, false
	}
	return promptID, true
}

func bindPeriod(c *gin.Context, startStr, endStr string, loc *time.Location) (service.ComparisonPeriod, bool) {
	start, end, err := util.ParseDateRange(startStr, endStr, loc)
	if err != nil {
		response.Error(c, service.ErrInvalidPeriod)
		return service.ComparisonPeriod{}, false
	}
	period, err := service.NewComparisonPeriod(start, end)
	if err != nil {
		response.Error(c, err)
		return service.ComparisonPeriod{}, false
	}
	return period, true
}
