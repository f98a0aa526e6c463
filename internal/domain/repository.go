// Package domain 定义领域模型和接口
package domain

import "context"

// TargetRepository 备份目标仓储接口
type TargetRepository interface {
	// GetByID 根据ID获取目标
	GetByID(ctx context.Context, id int64) (*Target, error)

	// GetByName 根据名称获取目标
	GetByName(ctx context.Context, name string) (*Target, error)

	// Create 创建目标
	Create(ctx context.Context, target *Target) (*Target, error)

	// Update 更新目标
	Update(ctx context.Context, target *Target) (*Target, error)

	// SetStatus 更新目标的进程状态与 PID
	SetStatus(ctx context.Context, id int64, status int, pid int32) error

	// Delete 删除目标
	Delete(ctx context.Context, id int64) error

	// List 获取全部目标
	List(ctx context.Context) ([]*Target, error)

	// ListEnabled 获取启用的目标
	ListEnabled(ctx context.Context) ([]*Target, error)
}

// ScheduleRepository 备份计划仓储接口
type ScheduleRepository interface {
	// GetByID 根据ID获取计划
	GetByID(ctx context.Context, id int64) (*BackupSchedule, error)

	// GetByTargetID 根据目标ID获取计划，每个目标至多一条
	GetByTargetID(ctx context.Context, targetID int64) (*BackupSchedule, error)

	// Create 创建计划
	Create(ctx context.Context, schedule *BackupSchedule) (*BackupSchedule, error)

	// Update 更新计划
	Update(ctx context.Context, schedule *BackupSchedule) (*BackupSchedule, error)

	// UpdateLastRun 更新计划的上次执行时间与状态
	UpdateLastRun(ctx context.Context, id int64, status int, message string) error

	// Delete 删除计划
	Delete(ctx context.Context, id int64) error

	// List 获取全部计划
	List(ctx context.Context) ([]*BackupSchedule, error)

	// ListEnabled 获取启用的计划
	ListEnabled(ctx context.Context) ([]*BackupSchedule, error)
}

// HistoryRepository 备份历史仓储接口
type HistoryRepository interface {
	// Create 写入一条历史记录
	Create(ctx context.Context, history *BackupHistory) (*BackupHistory, error)

	// GetByID 根据ID获取历史记录
	GetByID(ctx context.Context, id int64) (*BackupHistory, error)

	// ListByTarget 分页获取某目标的历史记录，按开始时间倒序
	ListByTarget(ctx context.Context, targetID int64, page, pageSize int) ([]*BackupHistory, error)

	// CountByTarget 获取某目标的历史记录数量
	CountByTarget(ctx context.Context, targetID int64) (int64, error)

	// DeleteByFilePath 根据归档路径删除历史记录
	DeleteByFilePath(ctx context.Context, filePath string) error
}
