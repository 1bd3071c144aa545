package job

import (
	"context"
	"errors"
	log "log/slog"

	"github.com/gonghojin/prompt-center-sub001/internal/pkg/logger"
	"github.com/gonghojin/prompt-center-sub001/internal/service"
	"github.com/google/uuid"
)

// ViewSyncJob 定时把缓存增量刷入持久化计数，也响应内存压力触发的提前刷盘
type ViewSyncJob struct {
	syncSvc service.ViewSyncService
}

func NewViewSyncJob(syncSvc service.ViewSyncService) *ViewSyncJob {
	return &ViewSyncJob{syncSvc: syncSvc}
}

func (s *ViewSyncJob) Run() {
	s.run(context.Background(), "schedule")
}

// Listen 阻塞直到 ctx 结束
func (s *ViewSyncJob) Listen(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-s.syncSvc.FlushRequests():
			s.run(ctx, reason)
		}
	}
}

func (s *ViewSyncJob) run(parent context.Context, trigger string) {
	ctx := logger.WithTraceID(parent, "job-view-sync-"+uuid.NewString())
	report, err := s.syncSvc.Reconcile(ctx)
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			log.InfoContext(ctx, "view sync skipped, another run in progress", "trigger", trigger)
			return
		}
		log.ErrorContext(ctx, "view sync failed", "trigger", trigger, "err", err)
		return
	}
	if report.Failed > 0 {
		log.WarnContext(ctx, "view sync finished with failures", "trigger", trigger,
			"failed", report.Failed, "prompt_ids", report.FailedPromptIDs)
	}
}
