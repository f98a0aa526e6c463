package domain

import "time"

// MetricsSnapshot 备份引擎累计指标快照，进程生命周期内有效
type MetricsSnapshot struct {
	// TotalBackups 备份总次数
	TotalBackups int64 `json:"totalBackups"`
	// SuccessfulBackups 成功次数
	SuccessfulBackups int64 `json:"successfulBackups"`
	// FailedBackups 失败次数
	FailedBackups int64 `json:"failedBackups"`
	// CorruptedBackups 检出损坏的次数
	CorruptedBackups int64 `json:"corruptedBackups"`
	// VerificationFailures 验证失败次数
	VerificationFailures int64 `json:"verificationFailures"`
	// ScheduleExecutionFailures 调度执行失败次数
	ScheduleExecutionFailures int64 `json:"scheduleExecutionFailures"`
	// SuccessRate 成功率 0-1
	SuccessRate float64 `json:"successRate"`
	// AverageDuration 成功备份的滚动平均耗时
	AverageDuration time.Duration `json:"averageDuration"`
	// TotalArchiveBytes 累计归档字节数
	TotalArchiveBytes int64 `json:"totalArchiveBytes"`
	// DiskUsagePercent 最近一次探测的备份盘使用率
	DiskUsagePercent float64 `json:"diskUsagePercent"`
	// LastBackupTime 最近一次备份时间
	LastBackupTime time.Time `json:"lastBackupTime"`
	// LastBackupStatus 最近一次备份状态
	LastBackupStatus int `json:"lastBackupStatus"`
	// ConsecutiveFailures 连续失败次数，成功后归零
	ConsecutiveFailures int64 `json:"consecutiveFailures"`
}
