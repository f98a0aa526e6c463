package api_router

import (
	"github.com/craftops/game-backup-service/internal/app"
	"github.com/craftops/game-backup-service/internal/dto"
	pkgapp "github.com/craftops/game-backup-service/pkg/app"
	"github.com/craftops/game-backup-service/pkg/code"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BackupHandler 备份执行 API 路由处理器
type BackupHandler struct {
	*Handler
}

// NewBackupHandler 创建 BackupHandler 实例
func NewBackupHandler(a *app.App) *BackupHandler {
	return &BackupHandler{Handler: NewHandler(a)}
}

// Execute 手动触发一次备份
// @Summary 手动触发备份，同步等待执行结果
// @Tags 备份
// @Accept json
// @Produce json
// @Param params body dto.BackupExecuteRequest true "备份参数"
// @Success 200 {object} pkgapp.Res{data=dto.BackupResultDTO} "成功"
// @Router /api/backup/execute [post]
func (h *BackupHandler) Execute(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.BackupExecuteRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("BackupHandler.Execute.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}

	out, cerr := h.App.BackupManager.ExecuteBackup(c.Request.Context(), params.TargetID)
	if cerr != nil {
		response.ToResponse(cerr.WithData(out))
		return
	}
	response.ToResponse(code.Success.Clone().WithData(out))
}

// Verify 验证归档
// @Summary 验证归档完整性，可选失败后修复
// @Tags 备份
// @Accept json
// @Produce json
// @Param params body dto.VerifyRequest true "验证参数"
// @Success 200 {object} pkgapp.Res{data=domain.VerificationReport} "成功"
// @Router /api/backup/verify [post]
func (h *BackupHandler) Verify(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.VerifyRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}

	report, cerr := h.App.BackupManager.VerifyArchive(c.Request.Context(), params)
	if cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponse(code.Success.Clone().WithData(report))
}

// Cleanup 手动触发保留清理
// @Summary 按保留策略清理过期归档，targetId 为 0 时清理全部目标
// @Tags 备份
// @Accept json
// @Produce json
// @Param params body dto.CleanupRequest true "清理参数"
// @Success 200 {object} pkgapp.Res{data=[]domain.RetentionReport} "成功"
// @Router /api/backup/cleanup [post]
func (h *BackupHandler) Cleanup(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.CleanupRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}

	reports, cerr := h.App.BackupManager.Cleanup(c.Request.Context(), params.TargetID)
	if cerr != nil {
		// 清理报告随错误一并返回，便于定位哪些归档删除失败
		response.ToResponse(cerr.WithData(reports))
		return
	}
	response.ToResponse(code.Success.Clone().WithData(reports))
}

// History 备份历史列表
// @Summary 分页查询某目标的备份历史
// @Tags 备份
// @Produce json
// @Param targetId query int true "目标ID"
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Success 200 {object} pkgapp.ListRes{list=[]dto.BackupHistoryDTO} "成功"
// @Router /api/backup/history [get]
func (h *BackupHandler) History(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.BackupHistoryListRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}
	if params.Page <= 0 {
		params.Page = pkgapp.GetPage(c)
	}
	if params.PageSize <= 0 {
		params.PageSize = pkgapp.GetPageSize(c)
	}

	list, total, cerr := h.App.BackupManager.ListHistory(c.Request.Context(), params)
	if cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponseList(code.Success.Clone(), list, int(total))
}
