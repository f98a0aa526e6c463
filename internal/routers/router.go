// Package routers 组装 HTTP 路由
package routers

import (
	"time"

	"github.com/craftops/game-backup-service/global"
	"github.com/craftops/game-backup-service/internal/app"
	"github.com/craftops/game-backup-service/internal/middleware"
	"github.com/craftops/game-backup-service/internal/routers/api_router"

	"github.com/gin-gonic/gin"
)

// NewRouter 创建公开 API 路由
func NewRouter(appContainer *app.App) *gin.Engine {
	cfg := global.Config

	r := gin.New()

	api := r.Group("/api")
	{
		api.Use(middleware.TraceMiddleware())
		api.Use(middleware.ContextTimeout(time.Duration(cfg.Server.WriteTimeout) * time.Second))
		api.Use(middleware.Cors())
		api.Use(middleware.AccessLog())
		api.Use(middleware.RecoveryWithLogger(appContainer.Logger()))

		healthHandler := api_router.NewHealthHandler(appContainer)
		targetHandler := api_router.NewTargetHandler(appContainer)
		scheduleHandler := api_router.NewScheduleHandler(appContainer)
		backupHandler := api_router.NewBackupHandler(appContainer)
		metricsHandler := api_router.NewMetricsHandler(appContainer)

		api.GET("/health", healthHandler.Check)
		api.GET("/metrics", metricsHandler.Snapshot)

		api.POST("/target", targetHandler.Add)
		api.PUT("/target", targetHandler.Update)
		api.DELETE("/target", targetHandler.Delete)
		api.GET("/target/info", targetHandler.Get)
		api.GET("/target/list", targetHandler.List)

		api.POST("/schedule", scheduleHandler.Add)
		api.PUT("/schedule", scheduleHandler.Update)
		api.DELETE("/schedule", scheduleHandler.Delete)
		api.GET("/schedule/status", scheduleHandler.Status)
		api.GET("/schedule/list", scheduleHandler.List)

		api.POST("/backup/execute", backupHandler.Execute)
		api.POST("/backup/verify", backupHandler.Verify)
		api.POST("/backup/cleanup", backupHandler.Cleanup)
		api.GET("/backup/history", backupHandler.History)
	}

	r.Use(middleware.Cors())
	r.NoRoute(middleware.NoFound())

	return r
}
