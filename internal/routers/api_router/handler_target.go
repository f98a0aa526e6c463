package api_router

import (
	"github.com/craftops/game-backup-service/internal/app"
	"github.com/craftops/game-backup-service/internal/dto"
	pkgapp "github.com/craftops/game-backup-service/pkg/app"
	"github.com/craftops/game-backup-service/pkg/code"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TargetHandler 备份目标 API 路由处理器
type TargetHandler struct {
	*Handler
}

// NewTargetHandler 创建 TargetHandler 实例
func NewTargetHandler(a *app.App) *TargetHandler {
	return &TargetHandler{Handler: NewHandler(a)}
}

// Add 新增备份目标
// @Summary 新增备份目标
// @Tags 目标
// @Accept json
// @Produce json
// @Param params body dto.TargetAddRequest true "目标参数"
// @Success 200 {object} pkgapp.Res{data=dto.TargetDTO} "成功"
// @Router /api/target [post]
func (h *TargetHandler) Add(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.TargetAddRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("TargetHandler.Add.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}

	out, cerr := h.App.TargetStore.AddTarget(c.Request.Context(), params)
	if cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponse(code.Success.Clone().WithData(out))
}

// Update 更新备份目标
// @Summary 更新备份目标
// @Tags 目标
// @Accept json
// @Produce json
// @Param params body dto.TargetUpdateRequest true "目标参数"
// @Success 200 {object} pkgapp.Res{data=dto.TargetDTO} "成功"
// @Router /api/target [put]
func (h *TargetHandler) Update(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.TargetUpdateRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("TargetHandler.Update.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}

	out, cerr := h.App.TargetStore.UpdateTarget(c.Request.Context(), params)
	if cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponse(code.Success.Clone().WithData(out))
}

// Delete 删除备份目标
// @Summary 删除备份目标及其计划
// @Tags 目标
// @Produce json
// @Param id query int true "目标ID"
// @Success 200 {object} pkgapp.Res "成功"
// @Router /api/target [delete]
func (h *TargetHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.TargetIDRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}

	if cerr := h.App.TargetStore.RemoveTarget(c.Request.Context(), params.ID); cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponse(code.Success.Clone())
}

// Get 获取单个备份目标
// @Summary 获取单个备份目标，附带实时进程状态
// @Tags 目标
// @Produce json
// @Param id query int true "目标ID"
// @Success 200 {object} pkgapp.Res{data=dto.TargetDTO} "成功"
// @Router /api/target/info [get]
func (h *TargetHandler) Get(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.TargetIDRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}

	out, cerr := h.App.TargetStore.GetTarget(c.Request.Context(), params.ID)
	if cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponse(code.Success.Clone().WithData(out))
}

// List 获取全部备份目标
// @Summary 获取全部备份目标
// @Tags 目标
// @Produce json
// @Success 200 {object} pkgapp.Res{data=[]dto.TargetDTO} "成功"
// @Router /api/target/list [get]
func (h *TargetHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	out, cerr := h.App.TargetStore.ListTargets(c.Request.Context())
	if cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponse(code.Success.Clone().WithData(out))
}
