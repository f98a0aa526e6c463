// Package dto Defines data transfer objects (request parameters and response structs)
// Package dto 定义数据传输对象（请求参数和响应结构体）
package dto

import "time"

// ScheduleAddRequest 新增备份计划请求
type ScheduleAddRequest struct {
	TargetID      int64  `json:"targetId" form:"targetId" binding:"required" example:"1"`
	Type          string `json:"type" form:"type" binding:"required,oneof=daily weekly monthly" example:"daily"`
	Hour          int    `json:"hour" form:"hour" binding:"min=0,max=23" example:"3"`
	Minute        int    `json:"minute" form:"minute" binding:"min=0,max=59" example:"30"`
	RetentionDays int    `json:"retentionDays" form:"retentionDays" binding:"required,min=1,max=365" example:"7"`
	Enabled       *bool  `json:"enabled" form:"enabled" example:"true"`
}

// ScheduleUpdateRequest 更新备份计划请求
type ScheduleUpdateRequest struct {
	ID            int64  `json:"id" form:"id" binding:"required" example:"1"`
	Type          string `json:"type" form:"type" binding:"required,oneof=daily weekly monthly" example:"weekly"`
	Hour          int    `json:"hour" form:"hour" binding:"min=0,max=23" example:"4"`
	Minute        int    `json:"minute" form:"minute" binding:"min=0,max=59" example:"0"`
	RetentionDays int    `json:"retentionDays" form:"retentionDays" binding:"required,min=1,max=365" example:"14"`
	Enabled       *bool  `json:"enabled" form:"enabled" example:"true"`
}

// ScheduleIDRequest 按ID操作备份计划的请求
type ScheduleIDRequest struct {
	ID int64 `json:"id" form:"id" binding:"required" example:"1"`
}

// ScheduleDTO 备份计划 DTO
type ScheduleDTO struct {
	ID            int64     `json:"id"`            // 计划ID
	TargetID      int64     `json:"targetId"`      // 目标ID
	Type          string    `json:"type"`          // 周期类型 (daily, weekly, monthly)
	Hour          int       `json:"hour"`          // 执行小时
	Minute        int       `json:"minute"`        // 执行分钟
	RetentionDays int       `json:"retentionDays"` // 保留天数
	Enabled       bool      `json:"enabled"`       // 是否启用
	LastRun       time.Time `json:"lastRun"`       // 上次执行时间
	NextRun       time.Time `json:"nextRun"`       // 下次执行时间
	LastStatus    int       `json:"lastStatus"`    // 上次状态 (0:Idle, 1:Running, 2:Success, 3:Failed, 4:Stopped)
	LastMessage   string    `json:"lastMessage"`   // 上次运行结果消息
	CreatedAt     time.Time `json:"createdAt"`     // 创建时间
	UpdatedAt     time.Time `json:"updatedAt"`     // 更新时间
}
