package cron

import (
	"fmt"
	log "log/slog"
	"time"

	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/job"
	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine             *cron.Cron
	cfg                config.ViewConfig
	viewSyncJob        *job.ViewSyncJob
	viewConsistencyJob *job.ViewConsistencyJob
}

func NewCronManager(cfg config.ViewConfig, viewSyncJob *job.ViewSyncJob, viewConsistencyJob *job.ViewConsistencyJob) *Manager {
	return &Manager{
		engine: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(cfg.TimeLocation()),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		cfg:                cfg.WithDefaults(),
		viewSyncJob:        viewSyncJob,
		viewConsistencyJob: viewConsistencyJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	syncSpec := "@every " + s.cfg.FlushInterval.Round(time.Second).String()
	if _, err := s.engine.AddJob(syncSpec, s.viewSyncJob); err != nil {
		return fmt.Errorf("register view sync job %q: %w", syncSpec, err)
	}
	if _, err := s.engine.AddJob(s.cfg.ConsistencyCron, s.viewConsistencyJob); err != nil {
		return fmt.Errorf("register view consistency job %q: %w", s.cfg.ConsistencyCron, err)
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

// Stop 等待正在执行的任务结束
func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	<-s.engine.Stop().Done()
}
