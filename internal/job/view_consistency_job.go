package job

import (
	"context"
	log "log/slog"

	"github.com/gonghojin/prompt-center-sub001/internal/pkg/logger"
	"github.com/gonghojin/prompt-center-sub001/internal/service"
	"github.com/google/uuid"
)

type ViewConsistencyJob struct {
	syncSvc service.ViewSyncService
}

func NewViewConsistencyJob(syncSvc service.ViewSyncService) *ViewConsistencyJob {
	return &ViewConsistencyJob{syncSvc: syncSvc}
}

func (s *ViewConsistencyJob) Run() {
	ctx := logger.WithTraceID(context.Background(), "job-view-consistency-"+uuid.NewString())
	report, err := s.syncSvc.ValidateConsistency(ctx)
	if err != nil {
		log.ErrorContext(ctx, "view consistency check failed", "err", err)
		return
	}
	if report.Drifted > 0 {
		log.WarnContext(ctx, "view count drift found", "drifted", report.Drifted, "repaired", report.Repaired)
	}
}
