package api

import "github.com/gonghojin/prompt-center-sub001/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	ViewHandler           *handler.ViewHandler
	ViewStatisticsHandler *handler.ViewStatisticsHandler
	ViewAdminHandler      *handler.ViewAdminHandler
}
