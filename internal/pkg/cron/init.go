package cron

import log "log/slog"

// InitCron 注册浏览量对账与一致性校验任务并启动引擎
func InitCron(mgr *Manager) error {
	if err := mgr.RegisterJobs(); err != nil {
		return err
	}
	log.Info("Cron Jobs starting...", "entries", len(mgr.engine.Entries()),
		"flush_interval", mgr.cfg.FlushInterval, "consistency_cron", mgr.cfg.ConsistencyCron)
	mgr.Start()
	return nil
}
