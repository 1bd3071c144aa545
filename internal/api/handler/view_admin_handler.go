package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/gonghojin/prompt-center-sub001/internal/api/dto"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/response"
	"github.com/gonghojin/prompt-center-sub001/internal/service"
)

type ViewAdminHandler struct {
	syncSvc service.ViewSyncService
}

func NewViewAdminHandler(syncSvc service.ViewSyncService) *ViewAdminHandler {
	return &ViewAdminHandler{syncSvc: syncSvc}
}

// ForceSync 立即对账单个 prompt
func (h *ViewAdminHandler) ForceSync(c *gin.Context) {
	promptID, ok := promptIDParam(c)
	if !ok {
		return
	}
	count, err := h.syncSvc.ForceSync(c.Request.Context(), promptID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ViewCountDTO{PromptID: count.PromptID, TotalViewCount: count.TotalViewCount})
}

// Reconcile 立即执行一轮全量对账
func (h *ViewAdminHandler) Reconcile(c *gin.Context) {
	report, err := h.syncSvc.Reconcile(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.SyncReportDTO{
		Scanned:         report.Scanned,
		Flushed:         report.Flushed,
		Failed:          report.Failed,
		Raised:          report.Raised,
		FailedPromptIDs: report.FailedPromptIDs,
		DurationMs:      report.Duration.Milliseconds(),
	})
}
