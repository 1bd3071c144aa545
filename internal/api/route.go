package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gonghojin/prompt-center-sub001/internal/api/middleware"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/consts"
	"github.com/gonghojin/prompt-center-sub001/internal/pkg/logger"
)

func SetupRouter(group *HandlersGroup) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.CORSMiddleware())
	logger.SetupGin(r)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"code":    200,
				"message": "pong",
				"data":    nil,
			})
		})

		promptGroup := apiGroup.Group("/prompts/:prompt_id/views")
		{
			promptGroup.GET("/count", group.ViewHandler.GetViewCount)
			promptGroup.GET("/daily", group.ViewHandler.GetDailyStatistics)

			authOptGroup := promptGroup.Group("")
			authOptGroup.Use(middleware.AuthOptionalMiddleware())
			{
				authOptGroup.POST("", group.ViewHandler.RecordView)
			}
		}

		viewGroup := apiGroup.Group("/views")
		{
			viewGroup.GET("/statistics", group.ViewStatisticsHandler.GetStatistics)
			viewGroup.GET("/weekly", group.ViewStatisticsHandler.GetWeekly)
			viewGroup.GET("/top", group.ViewStatisticsHandler.GetTopViewed)
			viewGroup.GET("/distribution", group.ViewStatisticsHandler.GetViewCountDistribution)
		}

		// 需要登录 & 拥有 admin 角色
		adminGroup := apiGroup.Group("/admin/views")
		adminGroup.Use(middleware.AuthMiddleware(), middleware.CheckRoles(consts.RoleAdmin))
		{
			adminGroup.POST("/sync/:prompt_id", group.ViewAdminHandler.ForceSync)
			adminGroup.POST("/reconcile", group.ViewAdminHandler.Reconcile)
		}
	}

	return r
}
