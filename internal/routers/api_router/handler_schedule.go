package api_router

import (
	"github.com/craftops/game-backup-service/internal/app"
	"github.com/craftops/game-backup-service/internal/dto"
	pkgapp "github.com/craftops/game-backup-service/pkg/app"
	"github.com/craftops/game-backup-service/pkg/code"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ScheduleHandler 备份计划 API 路由处理器
type ScheduleHandler struct {
	*Handler
}

// NewScheduleHandler 创建 ScheduleHandler 实例
func NewScheduleHandler(a *app.App) *ScheduleHandler {
	return &ScheduleHandler{Handler: NewHandler(a)}
}

// Add 新增备份计划
// @Summary 为目标新增备份计划，每个目标至多一条
// @Tags 计划
// @Accept json
// @Produce json
// @Param params body dto.ScheduleAddRequest true "计划参数"
// @Success 200 {object} pkgapp.Res{data=dto.ScheduleDTO} "成功"
// @Router /api/schedule [post]
func (h *ScheduleHandler) Add(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ScheduleAddRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("ScheduleHandler.Add.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}

	out, cerr := h.App.ScheduleStore.AddSchedule(c.Request.Context(), params)
	if cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponse(code.Success.Clone().WithData(out))
}

// Update 更新备份计划
// @Summary 更新备份计划并重新注册调度
// @Tags 计划
// @Accept json
// @Produce json
// @Param params body dto.ScheduleUpdateRequest true "计划参数"
// @Success 200 {object} pkgapp.Res{data=dto.ScheduleDTO} "成功"
// @Router /api/schedule [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ScheduleUpdateRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Error("ScheduleHandler.Update.BindAndValid err", zap.Error(errs))
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}

	out, cerr := h.App.ScheduleStore.UpdateSchedule(c.Request.Context(), params)
	if cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponse(code.Success.Clone().WithData(out))
}

// Delete 删除备份计划
// @Summary 删除备份计划并注销调度
// @Tags 计划
// @Produce json
// @Param id query int true "计划ID"
// @Success 200 {object} pkgapp.Res "成功"
// @Router /api/schedule [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ScheduleIDRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}

	if cerr := h.App.ScheduleStore.RemoveSchedule(c.Request.Context(), params.ID); cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponse(code.Success.Clone())
}

// Status 获取单个备份计划状态
// @Summary 获取备份计划状态，含下次触发时间
// @Tags 计划
// @Produce json
// @Param id query int true "计划ID"
// @Success 200 {object} pkgapp.Res{data=dto.ScheduleDTO} "成功"
// @Router /api/schedule/status [get]
func (h *ScheduleHandler) Status(c *gin.Context) {
	response := pkgapp.NewResponse(c)
	params := &dto.ScheduleIDRequest{}

	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		response.ToResponse(code.ErrorInvalidParams.Clone().WithDetails(errs.ErrorsToString()))
		return
	}

	out, cerr := h.App.ScheduleStore.GetScheduleStatus(c.Request.Context(), params.ID)
	if cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponse(code.Success.Clone().WithData(out))
}

// List 获取全部备份计划
// @Summary 获取全部备份计划
// @Tags 计划
// @Produce json
// @Success 200 {object} pkgapp.Res{data=[]dto.ScheduleDTO} "成功"
// @Router /api/schedule/list [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	response := pkgapp.NewResponse(c)

	out, cerr := h.App.ScheduleStore.ListSchedules(c.Request.Context())
	if cerr != nil {
		response.ToResponse(cerr)
		return
	}
	response.ToResponse(code.Success.Clone().WithData(out))
}
