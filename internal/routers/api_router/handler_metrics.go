package api_router

import (
	"github.com/craftops/game-backup-service/internal/app"
	pkgapp "github.com/craftops/game-backup-service/pkg/app"
	"github.com/craftops/game-backup-service/pkg/code"

	"github.com/gin-gonic/gin"
)

// MetricsHandler 运行指标 API 路由处理器
type MetricsHandler struct {
	*Handler
}

// NewMetricsHandler 创建 MetricsHandler 实例
func NewMetricsHandler(a *app.App) *MetricsHandler {
	return &MetricsHandler{Handler: NewHandler(a)}
}

// Snapshot 获取运行指标快照
// @Summary 获取备份运行指标快照
// @Tags 系统
// @Produce json
// @Success 200 {object} pkgapp.Res{data=domain.MetricsSnapshot} "成功"
// @Router /api/metrics [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	pkgapp.NewResponse(c).ToResponse(code.Success.Clone().WithData(h.App.Metrics.Snapshot()))
}
