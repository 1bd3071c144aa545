package wire

import (
	"github.com/gin-gonic/gin"
	"github.com/gonghojin/prompt-center-sub001/internal/api"
	"github.com/gonghojin/prompt-center-sub001/internal/api/config"
	"github.com/gonghojin/prompt-center-sub001/internal/api/handler"
	"github.com/gonghojin/prompt-center-sub001/internal/job"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/cron"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/kafka"
	"github.com/gonghojin/prompt-center-sub001/internal/repository"
	"github.com/gonghojin/prompt-center-sub001/internal/service"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services 浏览量相关的业务服务，HTTP 与命令行工具共用
type Services struct {
	RecordSvc service.ViewRecordService
	SyncSvc   service.ViewSyncService
	StatsSvc  service.ViewStatisticsService
}

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	*Services
	Router       *gin.Engine
	DB           *gorm.DB
	CronMgr      *cron.Manager
	SyncJob      *job.ViewSyncJob
	KafkaManager *kafka.ConsumerManager // 未配置 broker 时为 nil
}

func BuildServices(db *gorm.DB, rdb redis.Cmdable, cfg *config.Config) *Services {
	viewCfg := cfg.View.WithDefaults()

	promptRepo := repository.NewPromptRepo(db)
	viewLogRepo := repository.NewViewLogRepo(db)
	viewCountRepo := repository.NewViewCountRepo(db)
	viewStatsRepo := repository.NewViewStatisticsRepo(db)
	viewCacheRepo := repository.NewViewCacheRepo(rdb)
	keys := service.NewViewKeyStrategy(viewCfg)

	syncSvc := service.NewViewSyncService(viewCfg, keys, viewCacheRepo, viewLogRepo, viewCountRepo, promptRepo, service.NewRedisLocker())
	recordSvc := service.NewViewRecordService(viewCfg, keys, viewCacheRepo, viewLogRepo, viewCountRepo, promptRepo, syncSvc)
	statsSvc := service.NewViewStatisticsService(viewCfg, viewLogRepo, viewCountRepo, viewStatsRepo, promptRepo)

	return &Services{
		RecordSvc: recordSvc,
		SyncSvc:   syncSvc,
		StatsSvc:  statsSvc,
	}
}

func BuildApplication(db *gorm.DB, rdb redis.Cmdable, cfg *config.Config) (*ApplicationContainer, error) {
	svcs := BuildServices(db, rdb, cfg)
	loc := cfg.View.TimeLocation()

	handlers := &api.HandlersGroup{
		ViewHandler:           handler.NewViewHandler(svcs.RecordSvc, svcs.StatsSvc, loc),
		ViewStatisticsHandler: handler.NewViewStatisticsHandler(svcs.StatsSvc, loc),
		ViewAdminHandler:      handler.NewViewAdminHandler(svcs.SyncSvc),
	}
	router := api.SetupRouter(handlers)

	syncJob := job.NewViewSyncJob(svcs.SyncSvc)
	consistencyJob := job.NewViewConsistencyJob(svcs.SyncSvc)
	cronMgr := cron.NewCronManager(cfg.View, syncJob, consistencyJob)

	kafkaMgr, err := kafka.NewConsumerManager(cfg, svcs.RecordSvc)
	if err != nil {
		return nil, err
	}

	return &ApplicationContainer{
		Services:     svcs,
		Router:       router,
		DB:           db,
		CronMgr:      cronMgr,
		SyncJob:      syncJob,
		KafkaManager: kafkaMgr,
	}, nil
}
