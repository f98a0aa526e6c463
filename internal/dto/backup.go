package dto

import (
	"time"

	"github.com/craftops/game-backup-service/internal/domain"
)

// BackupExecuteRequest 手动触发备份请求
type BackupExecuteRequest struct {
	TargetID int64 `json:"targetId" form:"targetId" binding:"required" example:"1"`
}

// BackupHistoryListRequest 备份历史列表请求
type BackupHistoryListRequest struct {
	TargetID int64 `json:"targetId" form:"targetId" binding:"required" example:"1"`
	Page     int   `json:"page" form:"page" example:"1"`
	PageSize int   `json:"pageSize" form:"pageSize" example:"20"`
}

// VerifyRequest 归档验证请求
type VerifyRequest struct {
	ArchivePath string `json:"archivePath" form:"archivePath" binding:"required" example:"/data/backups/survival-world/survival-world_backup_20260830_033000.tar.gz"`
	Checksum    string `json:"checksum" form:"checksum" example:"9f86d081..."`
	// Repair 验证失败时是否尝试修复
	Repair bool `json:"repair" form:"repair" example:"false"`
}

// CleanupRequest 保留策略清理请求
type CleanupRequest struct {
	// TargetID 为 0 时清理全部目标
	TargetID int64 `json:"targetId" form:"targetId" example:"1"`
}

// BackupResultDTO 备份执行结果 DTO
type BackupResultDTO struct {
	TargetID         int64                      `json:"targetId"`         // 目标ID
	TargetName       string                     `json:"targetName"`       // 目标名称
	ArchivePath      string                     `json:"archivePath"`      // 归档路径
	ArchiveSize      int64                      `json:"archiveSize"`      // 归档大小
	Checksum         string                     `json:"checksum"`         // SHA-256 摘要
	FileCount        int                        `json:"fileCount"`        // 文件数量
	Attempts         int                        `json:"attempts"`         // 执行次数
	WasTargetRunning bool                       `json:"wasTargetRunning"` // 备份前进程是否在运行
	Status           int                        `json:"status"`           // 最终状态
	Message          string                     `json:"message"`          // 结果消息
	Verification     *domain.VerificationReport `json:"verification,omitempty"`
	StartTime        time.Time                  `json:"startTime"`  // 开始时间
	DurationMs       int64                      `json:"durationMs"` // 耗时（毫秒）
}

// BackupHistoryDTO 备份历史 DTO
type BackupHistoryDTO struct {
	ID         int64     `json:"id"`         // 历史记录ID
	TargetID   int64     `json:"targetId"`   // 目标ID
	ScheduleID int64     `json:"scheduleId"` // 计划ID
	Trigger    string    `json:"trigger"`    // 触发方式
	StartTime  time.Time `json:"startTime"`  // 开始时间
	EndTime    time.Time `json:"endTime"`    // 结束时间
	Status     int       `json:"status"`     // 状态
	FilePath   string    `json:"filePath"`   // 归档路径
	FileSize   int64     `json:"fileSize"`   // 归档大小
	FileCount  int64     `json:"fileCount"`  // 文件数量
	Checksum   string    `json:"checksum"`   // SHA-256 摘要
	Attempts   int       `json:"attempts"`   // 执行次数
	Score      int       `json:"score"`      // 验证得分
	Message    string    `json:"message"`    // 结果消息
	CreatedAt  time.Time `json:"createdAt"`  // 创建时间
}
