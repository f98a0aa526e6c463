package domain

import "time"

// 游戏服务器进程状态
const (
	ProcessStatusUnknown = 0
	ProcessStatusRunning = 1
	ProcessStatusStopped = 2
)

// Target 备份目标领域模型，对应一个游戏服务器实例
type Target struct {
	ID int64
	// Name 目标名称，用于归档命名与目录隔离
	Name string
	// WorldPath 存档目录绝对路径
	WorldPath string
	// ProcessName 游戏服务器进程名，用于定位进程
	ProcessName string
	// StartCommand 重启进程使用的启动命令
	StartCommand string
	// WorkingDir 启动命令的工作目录
	WorkingDir string
	// MemoryMB 启动时分配的内存（MB），0 表示不指定
	MemoryMB int
	// Status 进程状态
	Status int
	// PID 进程号，停止时为 0
	PID int32
	// Enabled 是否参与备份调度
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
