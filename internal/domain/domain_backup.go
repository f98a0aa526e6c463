package domain

import "time"

// 备份执行状态
const (
	BackupStatusIdle    = 0
	BackupStatusRunning = 1
	BackupStatusSuccess = 2
	BackupStatusFailed  = 3
	BackupStatusStopped = 4
)

// BackupResult 单次备份执行的结果
type BackupResult struct {
	// TargetID 备份目标
	TargetID int64
	// TargetName 目标名称
	TargetName string
	// ArchivePath 归档文件绝对路径，失败时为空
	ArchivePath string
	// ArchiveSize 归档字节大小
	ArchiveSize int64
	// Checksum 归档 SHA-256 摘要
	Checksum string
	// FileCount 归档文件数量
	FileCount int
	// Attempts 实际执行次数（含重试）
	Attempts int
	// WasTargetRunning 备份前目标进程是否在运行
	WasTargetRunning bool
	// Status 最终状态
	Status int
	// Message 结果消息，失败时为错误描述
	Message string
	// Cause 失败归因的哨兵错误，成功时为 nil
	Cause error
	// Verification 验证报告，未执行验证时为 nil
	Verification *VerificationReport
	// StartTime 开始时间
	StartTime time.Time
	// Duration 总耗时
	Duration time.Duration
}

// 备份触发方式
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
	TriggerCatchup   = "catchup"
)

// BackupHistory备份历史领域模型
type BackupHistory struct {
	ID         int64
	TargetID   int64
	ScheduleID int64
	// Trigger 触发方式 scheduled/manual/catchup
	Trigger   string
	StartTime time.Time
	EndTime   time.Time
	Status    int
	FilePath  string
	FileSize  int64
	FileCount int64
	Checksum  string
	Attempts  int
	// Score 验证质量得分 0-100
	Score     int
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RetentionReport 一次保留策略清理的结果
type RetentionReport struct {
	// TargetID 清理的目标，0 表示全部目标
	TargetID int64
	// Scanned 扫描到的归档数量
	Scanned int
	// Removed 删除的归档数量
	Removed int
	// RemovedPaths 删除的归档路径
	RemovedPaths []string
	// FreedBytes 释放的字节数
	FreedBytes int64
	// Triggered 紧急磁盘清理是否被触发
	Triggered bool
	// Errors 清理过程中的错误描述
	Errors []string
}
